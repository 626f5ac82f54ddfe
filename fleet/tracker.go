package fleet

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
)

// Store is the narrow contract to the persistent store. UpdateVehicle writes
// the vehicle row and, when rec is non-nil, the history record in the same
// transaction, so a failure leaves no partial commit.
type Store interface {
	LoadVehicles(ctx context.Context) ([]Vehicle, error)
	InsertVehicle(ctx context.Context, v Vehicle) error
	UpdateVehicle(ctx context.Context, v Vehicle, rec *HistoryRecord) error
	DeleteVehicle(ctx context.Context, id string) error
	VehicleHistory(ctx context.Context, id string) ([]HistoryRecord, error)
}

// VehicleFields carries the validated input of a create or update mutation.
// Coordinates are pointers so an explicit zero survives validation.
type VehicleFields struct {
	Name      string   `json:"name" validate:"required"`
	Status    Status   `json:"status" validate:"required,oneof=en-route paused completed"`
	Driver    string   `json:"driver"`
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

// Tracker is the mutation gateway. Every create/update/delete runs the full
// sequence store-write -> registry-mutation -> detect -> history append ->
// publish under one mutex, so mutations apply in acceptance order and a
// session never observes history and announcements that disagree.
type Tracker struct {
	mu         sync.Mutex
	store      Store
	registry   *Registry
	dispatcher *Dispatcher
	metrics    Metrics
	validate   *validator.Validate
	entropy    *ulid.MonotonicEntropy
	now        func() time.Time
}

func NewTracker(store Store, m Metrics) *Tracker {
	if m == nil {
		m = NopMetrics{}
	}
	return &Tracker{
		store:      store,
		registry:   NewRegistry(),
		dispatcher: NewDispatcher(),
		metrics:    m,
		validate:   validator.New(),
		entropy:    ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
		now:        time.Now,
	}
}

// Start warms the registry from the persistent store.
func (t *Tracker) Start(ctx context.Context) error {
	vehicles, err := t.store.LoadVehicles(ctx)
	if err != nil {
		return &StorageError{Op: "load", Err: err}
	}
	t.registry.Load(vehicles)
	return nil
}

// List returns a snapshot of all tracked vehicles, sorted by id.
func (t *Tracker) List() []Vehicle {
	return t.registry.List()
}

func (t *Tracker) Get(id string) (Vehicle, error) {
	v, ok := t.registry.Get(id)
	if !ok {
		return Vehicle{}, &NotFoundError{ID: id}
	}
	return v, nil
}

// Create registers a new vehicle. The creation is announced as vehicleAdded;
// no history record is written for the creation itself.
func (t *Tracker) Create(ctx context.Context, fields VehicleFields) (Vehicle, error) {
	if err := t.checkFields(fields); err != nil {
		return Vehicle{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	v := Vehicle{
		ID:        ulid.MustNew(ulid.Timestamp(t.now()), t.entropy).String(),
		Name:      fields.Name,
		Status:    fields.Status,
		Driver:    fields.Driver,
		Latitude:  *fields.Latitude,
		Longitude: *fields.Longitude,
		UpdatedAt: t.now(),
	}
	if err := t.store.InsertVehicle(ctx, v); err != nil {
		return Vehicle{}, &StorageError{Op: "insert", Err: err}
	}
	t.registry.Upsert(v)

	if ch := Detect(nil, &v); ch.Created {
		t.publish(vehicleAddedEvent(v))
	}
	t.metrics.MutationApplied("create")
	return v, nil
}

// Update replaces the vehicle's state. A history record is appended and a
// locationUpdated announcement published iff the coordinates changed; a
// status-only update mutates the registry and store silently.
func (t *Tracker) Update(ctx context.Context, id string, fields VehicleFields) (Vehicle, error) {
	if err := t.checkFields(fields); err != nil {
		return Vehicle{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	prev, ok := t.registry.Get(id)
	if !ok {
		return Vehicle{}, &NotFoundError{ID: id}
	}
	next := Vehicle{
		ID:        id,
		Name:      fields.Name,
		Status:    fields.Status,
		Driver:    fields.Driver,
		Latitude:  *fields.Latitude,
		Longitude: *fields.Longitude,
		UpdatedAt: t.now(),
	}

	ch := Detect(&prev, &next)
	var rec *HistoryRecord
	if ch.PositionChanged {
		rec = &HistoryRecord{
			VehicleID:  id,
			Latitude:   next.Latitude,
			Longitude:  next.Longitude,
			RecordedAt: next.UpdatedAt,
		}
	}
	if err := t.store.UpdateVehicle(ctx, next, rec); err != nil {
		return Vehicle{}, &StorageError{Op: "update", Err: err}
	}
	t.registry.Upsert(next)

	if ch.PositionChanged {
		t.publish(locationUpdatedEvent(next))
	}
	t.metrics.MutationApplied("update")
	return next, nil
}

// Delete removes the vehicle and announces vehicleDeleted. History rows are
// left to the store's own retention; the core never touches them on delete.
func (t *Tracker) Delete(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev, ok := t.registry.Get(id)
	if !ok {
		return &NotFoundError{ID: id}
	}
	if err := t.store.DeleteVehicle(ctx, id); err != nil {
		return &StorageError{Op: "delete", Err: err}
	}
	t.registry.Remove(id)

	if ch := Detect(&prev, nil); ch.Deleted {
		t.publish(vehicleDeletedEvent(id))
	}
	t.metrics.MutationApplied("delete")
	return nil
}

// History returns the vehicle's position trail, newest first.
func (t *Tracker) History(ctx context.Context, id string) ([]HistoryRecord, error) {
	if _, ok := t.registry.Get(id); !ok {
		return nil, &NotFoundError{ID: id}
	}
	recs, err := t.store.VehicleHistory(ctx, id)
	if err != nil {
		return nil, &StorageError{Op: "history", Err: err}
	}
	return recs, nil
}

// Subscribe delivers the current snapshot to sub as an initialPositions event
// and registers it for all subsequent announcements. Both happen under the
// mutation lock, so no mutation can slip between the snapshot read and the
// registration: a late joiner sees each committed mutation either in the
// snapshot or as a live event, never both and never neither.
func (t *Tracker) Subscribe(sub Subscriber) (Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := sub.Deliver(initialPositionsEvent(t.registry.List())); err != nil {
		return 0, err
	}
	h := t.dispatcher.Subscribe(sub)
	t.metrics.SessionsChanged(t.dispatcher.Count())
	return h, nil
}

// Resync re-sends the snapshot to an already-subscribed session, with the
// same semantics as the initial connect. The live subscription is untouched.
func (t *Tracker) Resync(sub Subscriber) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return sub.Deliver(initialPositionsEvent(t.registry.List()))
}

func (t *Tracker) Unsubscribe(h Handle) {
	t.dispatcher.Unsubscribe(h)
	t.metrics.SessionsChanged(t.dispatcher.Count())
}

// Sessions returns the number of live subscriptions.
func (t *Tracker) Sessions() int {
	return t.dispatcher.Count()
}

func (t *Tracker) publish(ev Event) {
	delivered, dropped := t.dispatcher.Publish(ev)
	t.metrics.EventPublished(ev.Type, delivered)
	if dropped > 0 {
		t.metrics.DeliveryDropped(dropped)
		t.metrics.SessionsChanged(t.dispatcher.Count())
	}
}

func (t *Tracker) checkFields(fields VehicleFields) error {
	if err := t.validate.Struct(fields); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) && len(errs) > 0 {
			msgs := make([]string, 0, len(errs))
			for _, fe := range errs {
				msgs = append(msgs, fe.Field()+" failed "+fe.Tag())
			}
			return &ValidationError{Msg: strings.Join(msgs, "; ")}
		}
		return &ValidationError{Msg: err.Error()}
	}
	return nil
}
