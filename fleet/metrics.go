package fleet

// Metrics receives operational counters from the tracker and dispatcher. The
// concrete implementation lives outside this package so the core stays free of
// instrumentation dependencies.
type Metrics interface {
	MutationApplied(op string)
	EventPublished(eventType string, delivered int)
	DeliveryDropped(n int)
	SessionsChanged(live int)
}

// NopMetrics discards everything. Useful default for tests and embedding.
type NopMetrics struct{}

func (NopMetrics) MutationApplied(string)     {}
func (NopMetrics) EventPublished(string, int) {}
func (NopMetrics) DeliveryDropped(int)        {}
func (NopMetrics) SessionsChanged(int)        {}
