package fleettracker

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/theoremus-urban-solutions/fleet-tracker/fleet"
)

// Server carries the HTTP surface: the REST gateway, the websocket push
// channel, login, health and metrics.
type Server struct {
	httpServer *http.Server
	tracker    *fleet.Tracker
	auth       *authenticator
}

func NewServer(tracker *fleet.Tracker) *Server {
	return &Server{
		tracker: tracker,
		auth:    newAuthenticator(Config.Auth),
	}
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("GET /api/vehicles", s.handleListVehicles)
	mux.HandleFunc("GET /api/vehicles/{id}", s.handleGetVehicle)
	mux.HandleFunc("GET /api/vehicles/{id}/history", s.handleVehicleHistory)
	mux.HandleFunc("POST /api/vehicles", s.auth.require(s.handleCreateVehicle))
	mux.HandleFunc("PUT /api/vehicles/{id}", s.auth.require(s.handleUpdateVehicle))
	mux.HandleFunc("DELETE /api/vehicles/{id}", s.auth.require(s.handleDeleteVehicle))
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", Config.Server.Port)
	// No WriteTimeout: /ws connections are long-lived.
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()
	log.Printf("server listening on %s", addr)
}

func (s *Server) HandleGracefulShutdown() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Printf("shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Printf("server shutdown error: %v", err)
		} else {
			log.Printf("server shut down successfully")
		}
	}
}
