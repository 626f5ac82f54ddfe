package fleet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

// memStore is an in-memory Store used to exercise the tracker without a
// database. failWith makes every write fail, for atomicity tests.
type memStore struct {
	mu       sync.Mutex
	vehicles map[string]Vehicle
	history  map[string][]HistoryRecord
	failWith error
}

func newMemStore() *memStore {
	return &memStore{vehicles: map[string]Vehicle{}, history: map[string][]HistoryRecord{}}
}

func (m *memStore) LoadVehicles(ctx context.Context) ([]Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Vehicle, 0, len(m.vehicles))
	for _, v := range m.vehicles {
		out = append(out, v)
	}
	return out, nil
}

func (m *memStore) InsertVehicle(ctx context.Context, v Vehicle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.vehicles[v.ID] = v
	return nil
}

func (m *memStore) UpdateVehicle(ctx context.Context, v Vehicle, rec *HistoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.vehicles[v.ID] = v
	if rec != nil {
		m.history[v.ID] = append(m.history[v.ID], *rec)
	}
	return nil
}

func (m *memStore) DeleteVehicle(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	delete(m.vehicles, id)
	return nil
}

func (m *memStore) VehicleHistory(ctx context.Context, id string) ([]HistoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs := m.history[id]
	out := make([]HistoryRecord, len(recs))
	for i, r := range recs {
		out[len(recs)-1-i] = r
	}
	return out, nil
}

func (m *memStore) historyLen(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.history[id])
}

func fields(name string, status Status, lat, lon float64) VehicleFields {
	return VehicleFields{Name: name, Status: status, Latitude: &lat, Longitude: &lon}
}

func TestTrackerCreateVisibility(t *testing.T) {
	tr := NewTracker(newMemStore(), nil)
	ctx := context.Background()

	v, err := tr.Create(ctx, fields("Truck 1", StatusEnRoute, 10.0, 20.0))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if v.ID == "" {
		t.Fatal("created vehicle should have an id")
	}

	list := tr.List()
	if len(list) != 1 {
		t.Fatalf("expected exactly one vehicle, got %d", len(list))
	}
	got := list[0]
	if got.ID != v.ID || got.Name != "Truck 1" || got.Status != StatusEnRoute ||
		got.Latitude != 10.0 || got.Longitude != 20.0 {
		t.Errorf("listed vehicle does not match submitted fields: %+v", got)
	}
}

func TestTrackerValidation(t *testing.T) {
	tr := NewTracker(newMemStore(), nil)
	ctx := context.Background()

	lat, lon := 10.0, 20.0
	bad := []struct {
		name string
		f    VehicleFields
	}{
		{"missing name", VehicleFields{Status: StatusEnRoute, Latitude: &lat, Longitude: &lon}},
		{"bad status", fields("Truck", Status("parked"), 10.0, 20.0)},
		{"latitude out of range", fields("Truck", StatusEnRoute, 91.0, 20.0)},
		{"longitude out of range", fields("Truck", StatusEnRoute, 10.0, -181.0)},
		{"missing coordinates", VehicleFields{Name: "Truck", Status: StatusEnRoute}},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tr.Create(ctx, tt.f); !IsValidation(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
	if len(tr.List()) != 0 {
		t.Error("rejected mutations must leave no side effects")
	}
}

// Scenario A: a status-only update mutates the registry but appends no
// history and publishes nothing.
func TestTrackerStatusOnlyUpdate(t *testing.T) {
	store := newMemStore()
	tr := NewTracker(store, nil)
	ctx := context.Background()

	v, err := tr.Create(ctx, fields("X", StatusEnRoute, 10.0, 20.0))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	sub := &recordingSub{}
	if _, err := tr.Subscribe(sub); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	updated, err := tr.Update(ctx, v.ID, fields("X", StatusPaused, 10.0, 20.0))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != StatusPaused {
		t.Errorf("expected status paused, got %s", updated.Status)
	}
	if got := tr.List()[0].Status; got != StatusPaused {
		t.Errorf("list should reflect new status, got %s", got)
	}
	if n := store.historyLen(v.ID); n != 0 {
		t.Errorf("status-only update must not append history, got %d records", n)
	}
	for _, ev := range sub.types() {
		if ev == EventLocationUpdated {
			t.Error("status-only update must not announce locationUpdated")
		}
	}
}

// Scenario B: a position change appends exactly one history record and
// announces locationUpdated carrying the current status.
func TestTrackerPositionUpdate(t *testing.T) {
	store := newMemStore()
	tr := NewTracker(store, nil)
	ctx := context.Background()

	v, _ := tr.Create(ctx, fields("X", StatusPaused, 10.0, 20.0))
	sub := &recordingSub{}
	if _, err := tr.Subscribe(sub); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if _, err := tr.Update(ctx, v.ID, fields("X", StatusPaused, 11.0, 21.0)); err != nil {
		t.Fatalf("update: %v", err)
	}

	recs, err := tr.History(ctx, v.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected exactly one history record, got %d", len(recs))
	}
	if recs[0].Latitude != 11.0 || recs[0].Longitude != 21.0 {
		t.Errorf("history should carry the new coordinates: %+v", recs[0])
	}

	sub.mu.Lock()
	defer sub.mu.Unlock()
	var update *LocationUpdate
	for _, ev := range sub.events {
		if ev.Type == EventLocationUpdated {
			lu := ev.Data.(LocationUpdate)
			update = &lu
		}
	}
	if update == nil {
		t.Fatal("expected a locationUpdated event")
	}
	if update.VehicleID != v.ID || update.Latitude != 11.0 || update.Longitude != 21.0 || update.Status != StatusPaused {
		t.Errorf("locationUpdated payload wrong: %+v", update)
	}
}

func TestTrackerHistoryNewestFirst(t *testing.T) {
	tr := NewTracker(newMemStore(), nil)
	ctx := context.Background()

	v, _ := tr.Create(ctx, fields("X", StatusEnRoute, 0.0, 0.0))
	for i := 1; i <= 3; i++ {
		if _, err := tr.Update(ctx, v.ID, fields("X", StatusEnRoute, float64(i), float64(i))); err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}

	recs, _ := tr.History(ctx, v.ID)
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	if recs[0].Latitude != 3.0 || recs[2].Latitude != 1.0 {
		t.Errorf("history should be newest first: %+v", recs)
	}
}

func TestTrackerDeleteVisibility(t *testing.T) {
	tr := NewTracker(newMemStore(), nil)
	ctx := context.Background()

	v, _ := tr.Create(ctx, fields("X", StatusEnRoute, 10.0, 20.0))
	sub := &recordingSub{}
	if _, err := tr.Subscribe(sub); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := tr.Delete(ctx, v.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(tr.List()) != 0 {
		t.Error("deleted vehicle must not appear in list")
	}

	sub.mu.Lock()
	defer sub.mu.Unlock()
	var deleted bool
	for _, ev := range sub.events {
		if ev.Type == EventVehicleDeleted {
			if ref := ev.Data.(VehicleRef); ref.VehicleID == v.ID {
				deleted = true
			}
		}
	}
	if !deleted {
		t.Error("live session should receive vehicleDeleted")
	}

	if err := tr.Delete(ctx, v.ID); !IsNotFound(err) {
		t.Errorf("deleting a deleted vehicle should be NotFound, got %v", err)
	}
}

func TestTrackerNotFound(t *testing.T) {
	tr := NewTracker(newMemStore(), nil)
	ctx := context.Background()

	if _, err := tr.Get("nope"); !IsNotFound(err) {
		t.Errorf("get: expected NotFound, got %v", err)
	}
	if _, err := tr.Update(ctx, "nope", fields("X", StatusEnRoute, 0, 0)); !IsNotFound(err) {
		t.Errorf("update: expected NotFound, got %v", err)
	}
	if _, err := tr.History(ctx, "nope"); !IsNotFound(err) {
		t.Errorf("history: expected NotFound, got %v", err)
	}
}

// A session connecting after N position updates gets one snapshot reflecting
// all of them and no replayed events.
func TestTrackerLateJoinerConsistency(t *testing.T) {
	tr := NewTracker(newMemStore(), nil)
	ctx := context.Background()

	v, _ := tr.Create(ctx, fields("X", StatusEnRoute, 0.0, 0.0))
	for i := 1; i <= 5; i++ {
		if _, err := tr.Update(ctx, v.ID, fields("X", StatusEnRoute, float64(i), float64(i))); err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}

	late := &recordingSub{}
	if _, err := tr.Subscribe(late); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	late.mu.Lock()
	defer late.mu.Unlock()
	if len(late.events) != 1 {
		t.Fatalf("late joiner should receive exactly the snapshot, got %d events", len(late.events))
	}
	if late.events[0].Type != EventInitialPositions {
		t.Fatalf("first event must be initialPositions, got %s", late.events[0].Type)
	}
	snapshot := late.events[0].Data.([]Vehicle)
	if len(snapshot) != 1 || snapshot[0].Latitude != 5.0 || snapshot[0].Longitude != 5.0 {
		t.Errorf("snapshot should reflect all applied updates: %+v", snapshot)
	}
}

func TestTrackerResyncKeepsSubscription(t *testing.T) {
	tr := NewTracker(newMemStore(), nil)
	ctx := context.Background()

	sub := &recordingSub{}
	if _, err := tr.Subscribe(sub); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := tr.Resync(sub); err != nil {
		t.Fatalf("resync: %v", err)
	}
	if _, err := tr.Create(ctx, fields("X", StatusEnRoute, 1.0, 2.0)); err != nil {
		t.Fatalf("create: %v", err)
	}

	types := sub.types()
	if len(types) != 3 || types[0] != EventInitialPositions || types[1] != EventInitialPositions || types[2] != EventVehicleAdded {
		t.Errorf("expected snapshot, snapshot, vehicleAdded; got %v", types)
	}
}

// A storage failure abandons the mutation as a whole: no registry change, no
// history, no announcement.
func TestTrackerStorageFailureAtomicity(t *testing.T) {
	store := newMemStore()
	tr := NewTracker(store, nil)
	ctx := context.Background()

	v, _ := tr.Create(ctx, fields("X", StatusEnRoute, 10.0, 20.0))
	sub := &recordingSub{}
	if _, err := tr.Subscribe(sub); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	store.mu.Lock()
	store.failWith = errors.New("connection lost")
	store.mu.Unlock()

	_, err := tr.Update(ctx, v.ID, fields("X", StatusEnRoute, 11.0, 21.0))
	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError, got %v", err)
	}

	got, _ := tr.Get(v.ID)
	if got.Latitude != 10.0 || got.Longitude != 20.0 {
		t.Errorf("failed mutation must not touch the registry: %+v", got)
	}
	if n := store.historyLen(v.ID); n != 0 {
		t.Errorf("failed mutation must not append history, got %d", n)
	}
	for _, typ := range sub.types() {
		if typ == EventLocationUpdated {
			t.Error("failed mutation must not be announced")
		}
	}
}

// Scenario C: concurrent updates to different vehicles interleave without
// corrupting either vehicle's final state or history count.
func TestTrackerConcurrentUpdates(t *testing.T) {
	store := newMemStore()
	tr := NewTracker(store, nil)
	ctx := context.Background()

	a, _ := tr.Create(ctx, fields("A", StatusEnRoute, 0.0, 0.0))
	b, _ := tr.Create(ctx, fields("B", StatusEnRoute, 0.0, 0.0))

	const n = 50
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 1; i <= n; i++ {
			if _, err := tr.Update(ctx, a.ID, fields("A", StatusEnRoute, float64(i), 0.0)); err != nil {
				t.Errorf("update A: %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 1; i <= n; i++ {
			if _, err := tr.Update(ctx, b.ID, fields("B", StatusEnRoute, 0.0, float64(i))); err != nil {
				t.Errorf("update B: %v", err)
				return
			}
		}
	}()
	wg.Wait()

	gotA, _ := tr.Get(a.ID)
	gotB, _ := tr.Get(b.ID)
	if gotA.Latitude != float64(n) || gotB.Longitude != float64(n) {
		t.Errorf("final states wrong: A=%+v B=%+v", gotA, gotB)
	}
	if store.historyLen(a.ID) != n || store.historyLen(b.ID) != n {
		t.Errorf("expected %d history records each, got A=%d B=%d",
			n, store.historyLen(a.ID), store.historyLen(b.ID))
	}
}

func TestTrackerStartWarmsRegistry(t *testing.T) {
	store := newMemStore()
	for i := 0; i < 3; i++ {
		store.vehicles[fmt.Sprintf("v%d", i)] = Vehicle{ID: fmt.Sprintf("v%d", i)}
	}

	tr := NewTracker(store, nil)
	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(tr.List()) != 3 {
		t.Errorf("expected 3 vehicles after warm-up, got %d", len(tr.List()))
	}
}
