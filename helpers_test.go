package fleettracker

import (
	"context"
	"sync"
	"testing"

	"github.com/theoremus-urban-solutions/fleet-tracker/fleet"
)

// testStore is the in-memory stand-in for the MySQL store.
type testStore struct {
	mu       sync.Mutex
	vehicles map[string]fleet.Vehicle
	history  map[string][]fleet.HistoryRecord
}

func newTestStore() *testStore {
	return &testStore{
		vehicles: map[string]fleet.Vehicle{},
		history:  map[string][]fleet.HistoryRecord{},
	}
}

func (s *testStore) LoadVehicles(ctx context.Context) ([]fleet.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]fleet.Vehicle, 0, len(s.vehicles))
	for _, v := range s.vehicles {
		out = append(out, v)
	}
	return out, nil
}

func (s *testStore) InsertVehicle(ctx context.Context, v fleet.Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vehicles[v.ID] = v
	return nil
}

func (s *testStore) UpdateVehicle(ctx context.Context, v fleet.Vehicle, rec *fleet.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vehicles[v.ID] = v
	if rec != nil {
		s.history[v.ID] = append(s.history[v.ID], *rec)
	}
	return nil
}

func (s *testStore) DeleteVehicle(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.vehicles, id)
	return nil
}

func (s *testStore) VehicleHistory(ctx context.Context, id string) ([]fleet.HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := s.history[id]
	out := make([]fleet.HistoryRecord, len(recs))
	for i, r := range recs {
		out[len(recs)-1-i] = r
	}
	return out, nil
}

func newTestServer(t *testing.T) (*Server, *fleet.Tracker) {
	t.Helper()
	orig := Config
	t.Cleanup(func() { Config = orig })
	Config = AppConfig{
		Server: ServerConfig{Port: 8081},
		Auth: AuthConfig{
			Secret:          "test-secret",
			TokenTTLMinutes: 5,
			Users:           []AuthUser{{Email: "test@example.com", Password: "123456"}},
		},
	}
	tracker := fleet.NewTracker(newTestStore(), nil)
	return NewServer(tracker), tracker
}
