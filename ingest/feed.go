package ingest

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/theoremus-urban-solutions/fleet-tracker/fleet"
)

// Feeder polls a GTFS-RT VehiclePositions feed and mirrors it into the fleet.
type Feeder struct {
	tracker  *fleet.Tracker
	url      string
	interval time.Duration
	timeout  time.Duration
	client   *http.Client

	// feed vehicle id -> registry id, built up as entities appear
	known map[string]string
}

func NewFeeder(tracker *fleet.Tracker, url string, interval, timeout time.Duration) *Feeder {
	return &Feeder{
		tracker:  tracker,
		url:      url,
		interval: interval,
		timeout:  timeout,
		client:   &http.Client{Timeout: timeout},
		known:    map[string]string{},
	}
}

func (f *Feeder) Run(ctx context.Context) {
	t := time.NewTimer(0)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := f.tick(ctx); err != nil {
				log.Printf("gtfsrt poll error: %v", err)
			}
			t.Reset(f.interval)
		}
	}
}

func (f *Feeder) tick(ctx context.Context) error {
	fm, err := f.fetch(ctx)
	if err != nil {
		return err
	}
	applied := 0
	for _, e := range fm.Entity {
		if e.Vehicle == nil || e.Vehicle.Position == nil {
			continue
		}
		pos := e.Vehicle.Position
		if pos.Latitude == nil || pos.Longitude == nil {
			continue
		}
		ref := feedVehicleRef(e)
		if ref == "" {
			continue
		}
		if err := f.apply(ctx, ref, float64(*pos.Latitude), float64(*pos.Longitude)); err != nil {
			log.Printf("gtfsrt apply %s: %v", ref, err)
			continue
		}
		applied++
	}
	log.Printf("gtfsrt feed: %d entities, %d applied", len(fm.Entity), applied)
	return nil
}

// apply routes one feed position through the mutation gateway. Name, driver
// and status are preserved on updates; new vehicles start en-route under the
// feed reference as their name.
func (f *Feeder) apply(ctx context.Context, ref string, lat, lon float64) error {
	if id, ok := f.known[ref]; ok {
		current, err := f.tracker.Get(id)
		if err != nil {
			delete(f.known, ref)
			return err
		}
		_, err = f.tracker.Update(ctx, id, fleet.VehicleFields{
			Name:      current.Name,
			Status:    current.Status,
			Driver:    current.Driver,
			Latitude:  &lat,
			Longitude: &lon,
		})
		return err
	}
	v, err := f.tracker.Create(ctx, fleet.VehicleFields{
		Name:      ref,
		Status:    fleet.StatusEnRoute,
		Latitude:  &lat,
		Longitude: &lon,
	})
	if err != nil {
		return err
	}
	f.known[ref] = v.ID
	return nil
}

func (f *Feeder) fetch(ctx context.Context) (*gtfsrtpb.FeedMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned %s", resp.Status)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var fm gtfsrtpb.FeedMessage
	if err := proto.Unmarshal(b, &fm); err != nil {
		return nil, err
	}
	return &fm, nil
}

func feedVehicleRef(e *gtfsrtpb.FeedEntity) string {
	if e.Vehicle.Vehicle != nil && e.Vehicle.Vehicle.Id != nil && *e.Vehicle.Vehicle.Id != "" {
		return *e.Vehicle.Vehicle.Id
	}
	if e.Id != nil {
		return *e.Id
	}
	return ""
}
