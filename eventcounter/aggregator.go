package eventcounter

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jonwraymond/counterhealth/health"
	"github.com/jonwraymond/counterhealth/instrument"
	"github.com/jonwraymond/counterhealth/observe"
	"github.com/jonwraymond/counterhealth/resilience"
)

// CheckName is the name the aggregator reports as a health.Checker.
const CheckName = "eventcounter"

// NotStartedDescription describes the verdict before Start and after Stop.
const NotStartedDescription = "event counter health check not started"

// notStarted is the verdict before the first cycle and after Stop.
var notStarted = health.Result{
	Status:      health.StatusUnhealthy,
	Description: NotStartedDescription,
}

// Host is the instrumentation system the aggregator listens to.
// *instrument.Hub implements it.
type Host interface {
	AddListener(l instrument.Listener)
	RemoveListener(l instrument.Listener)
	EnableEvents(l instrument.Listener, id instrument.SourceID, options map[string]string) error
	DisableEvents(l instrument.Listener, id instrument.SourceID) error
}

type lifecycle int

const (
	stateIdle lifecycle = iota
	stateRunning
	stateStopped
)

// Aggregator folds the health of a fixed set of filters into one verdict.
//
// Contract:
//   - Concurrency: all methods are safe for concurrent use. Current never
//     blocks.
//   - Lifecycle: idle, then running after Start, then stopped after Stop.
//     A stopped aggregator cannot be restarted.
//   - Ownership: the aggregator only toggles event flow on sources; it never
//     closes them.
type Aggregator struct {
	host     Host
	filters  []*guardedFilter
	interval time.Duration

	logger    observe.Logger
	metrics   observe.CounterMetrics
	tracer    observe.Tracer
	isolation *resilience.CircuitBreakerConfig

	// pending holds sources reported by the host until discovery runs.
	pendingMu  sync.Mutex
	pending    []instrument.Source
	discovered bool

	mu      sync.Mutex
	state   lifecycle
	enabled []enabledSource
	cancel  context.CancelFunc
	done    chan struct{}

	running  atomic.Bool
	registry atomic.Pointer[registry]

	verdictMu sync.Mutex // serializes verdict writes against Stop
	verdict   atomic.Pointer[health.Result]
}

type enabledSource struct {
	id   instrument.SourceID
	name string
}

// New creates an aggregator over filters and registers it with host. The
// host reports every existing source immediately; they are evaluated by
// Start.
func New(host Host, filters []Filter, opts ...Option) (*Aggregator, error) {
	if host == nil {
		return nil, ErrNilHub
	}

	a := &Aggregator{
		host:     host,
		interval: DefaultInterval,
		logger:   observe.NopLogger(),
		metrics:  observe.NopCounterMetrics(),
		tracer:   observe.NopTracer(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.WithComponent(CheckName)

	a.filters = make([]*guardedFilter, len(filters))
	names := make(map[string]int, len(filters))
	for i, f := range filters {
		if f == nil {
			return nil, ErrNilFilter
		}
		g := &guardedFilter{filter: f, name: filterName(f, i)}
		if a.isolation != nil {
			g.discoverCB = a.newBreaker(g.name, opShouldRecord)
			g.snapshotCB = a.newBreaker(g.name, opOnSnapshot)
			g.updateCB = a.newBreaker(g.name, opUpdateHealth)
		}
		if prev, dup := names[g.name]; dup {
			a.logger.Warn(context.Background(), "filters share a diagnostic name",
				observe.Field{Key: "filter", Value: g.name},
				observe.Field{Key: "first", Value: prev},
				observe.Field{Key: "second", Value: i},
			)
		} else {
			names[g.name] = i
		}
		a.filters[i] = g
	}

	sentinel := notStarted
	a.verdict.Store(&sentinel)

	host.AddListener(a)
	return a, nil
}

func (a *Aggregator) newBreaker(name, op string) *resilience.CircuitBreaker {
	cfg := *a.isolation
	userHook := cfg.OnStateChange
	cfg.OnStateChange = func(from, to resilience.State) {
		a.logger.Warn(context.Background(), "filter circuit changed state",
			observe.Field{Key: "filter", Value: name},
			observe.Field{Key: "operation", Value: op},
			observe.Field{Key: "from", Value: from.String()},
			observe.Field{Key: "to", Value: to.String()},
		)
		if userHook != nil {
			userHook(from, to)
		}
	}
	return resilience.NewCircuitBreaker(cfg)
}

// OnSourceCreated buffers sources until discovery. Sources reported after
// Start are ignored.
func (a *Aggregator) OnSourceCreated(src instrument.Source) {
	a.pendingMu.Lock()
	defer a.pendingMu.Unlock()
	if a.discovered {
		return
	}
	a.pending = append(a.pending, src)
}

// OnEventWritten decodes counter reports and dispatches them, in
// registration order, to the filters registered for the event's source.
// Events are discarded unless the aggregator is running.
func (a *Aggregator) OnEventWritten(ev instrument.Event) {
	if !a.running.Load() || ev.Source == nil {
		return
	}
	reg := a.registry.Load()
	if reg == nil {
		return
	}
	sourceName := ev.Source.Name()
	filters, ok := reg.TryGetFilters(sourceName)
	if !ok {
		return
	}

	ctx := context.Background()
	payload, ok := counterPayload(ev)
	if !ok {
		a.metrics.RecordIgnored(ctx, sourceName)
		return
	}

	snap := NewSnapshot(sourceName, ev.Source.ID(), payload)
	for _, f := range filters {
		if err := f.onSnapshot(snap); err != nil {
			a.filterFailed(ctx, f, opOnSnapshot, err)
		}
	}
	a.metrics.RecordDispatch(ctx, sourceName, len(filters))
}

// Start runs discovery and, when any filter claimed a source, starts the
// aggregation loop. With no claimed source the verdict stays at the
// not-started sentinel. ctx scopes discovery only; the loop runs until Stop.
func (a *Aggregator) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.state {
	case stateRunning:
		return ErrAlreadyStarted
	case stateStopped:
		return ErrStopped
	}
	a.state = stateRunning
	base := context.WithoutCancel(ctx)

	ctx, span := a.tracer.StartSpan(ctx, "eventcounter.discover")
	toEnable, reg := a.discover(ctx)
	span.SetAttributes(
		attribute.Int("sources.monitored", reg.Len()),
		attribute.Int("sources.enabled", len(toEnable)),
	)
	a.tracer.EndSpan(span, nil)

	if reg.Len() == 0 {
		a.logger.Info(ctx, "no filter claimed any source, aggregation not started",
			observe.Field{Key: "filters", Value: len(a.filters)},
		)
		return nil
	}

	a.registry.Store(reg)
	a.running.Store(true)

	options := map[string]string{
		instrument.IntervalOption: strconv.Itoa(int(DefaultInterval / time.Second)),
	}
	for _, src := range toEnable {
		if err := a.host.EnableEvents(a, src.id, options); err != nil {
			a.logger.Warn(ctx, "failed to enable source",
				observe.Field{Key: "source", Value: src.name},
				observe.Field{Key: "source_id", Value: src.id.String()},
				observe.Field{Key: "error", Value: err},
			)
			continue
		}
		a.enabled = append(a.enabled, src)
		a.metrics.RecordSourceEnabled(ctx, src.name, 1)
	}

	loopCtx, cancel := context.WithCancel(base)
	a.cancel = cancel
	a.done = make(chan struct{})
	go a.loop(loopCtx, a.done)

	a.logger.Info(ctx, "event counter aggregation started",
		observe.Field{Key: "sources", Value: len(a.enabled)},
		observe.Field{Key: "filters", Value: len(a.filters)},
		observe.Field{Key: "interval_ms", Value: a.interval.Milliseconds()},
	)
	return nil
}

// discover asks every filter about every buffered source. It returns the
// sources to enable, deduplicated by identity, and the populated registry.
func (a *Aggregator) discover(ctx context.Context) ([]enabledSource, *registry) {
	a.pendingMu.Lock()
	sources := a.pending
	a.pending = nil
	a.discovered = true
	a.pendingMu.Unlock()

	reg := newRegistry()
	seen := make(map[instrument.SourceID]struct{})
	var toEnable []enabledSource

	for _, src := range sources {
		name := src.Name()
		for _, f := range a.filters {
			want, err := f.shouldRecord(name)
			if err != nil {
				a.filterFailed(ctx, f, opShouldRecord, err)
				continue
			}
			if !want {
				continue
			}
			reg.AddInterest(name, f)
			if _, dup := seen[src.ID()]; dup {
				continue
			}
			seen[src.ID()] = struct{}{}
			toEnable = append(toEnable, enabledSource{id: src.ID(), name: name})
		}
	}
	return toEnable, reg
}

func (a *Aggregator) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for a.running.Load() {
		a.update(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// update runs one aggregation cycle and publishes its verdict.
func (a *Aggregator) update(ctx context.Context) {
	ctx, span := a.tracer.StartSpan(ctx, "eventcounter.cycle",
		attribute.Int("filters", len(a.filters)),
	)
	start := time.Now()

	data := make(map[string]any, len(a.filters))
	worst := health.StatusHealthy
	for _, f := range a.filters {
		status, err := f.updateHealthStatus(data)
		if err != nil {
			a.filterFailed(ctx, f, opUpdateHealth, err)
		}
		worst = health.Worst(worst, status)
	}

	duration := time.Since(start)
	result := health.Result{
		Status:    worst,
		Data:      data,
		Duration:  duration,
		Timestamp: time.Now(),
	}

	a.verdictMu.Lock()
	if a.running.Load() {
		a.verdict.Store(&result)
	}
	a.verdictMu.Unlock()

	span.SetAttributes(attribute.String("status", worst.String()))
	a.tracer.EndSpan(span, nil)
	a.metrics.RecordCycle(ctx, worst.String(), duration)
}

// filterFailed counts every failure but logs only real ones. Rejections by
// an open circuit are covered by the state change log.
func (a *Aggregator) filterFailed(ctx context.Context, f *guardedFilter, op string, err error) {
	a.metrics.RecordFilterFailure(ctx, f.name, op)
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return
	}
	a.logger.Warn(ctx, "filter call failed",
		observe.Field{Key: "filter", Value: f.name},
		observe.Field{Key: "operation", Value: op},
		observe.Field{Key: "error", Value: err},
	)
}

// Stop halts the loop, disables every source enabled by Start, unregisters
// from the host and resets the verdict to the not-started sentinel. Disable
// failures are logged and teardown continues. Stop is idempotent. The only
// error returned is ctx's, when it ends before the loop has exited.
func (a *Aggregator) Stop(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == stateStopped {
		return nil
	}
	a.state = stateStopped

	a.running.Store(false)
	if a.cancel != nil {
		a.cancel()
	}

	a.verdictMu.Lock()
	sentinel := notStarted
	a.verdict.Store(&sentinel)
	a.verdictMu.Unlock()

	for _, src := range a.enabled {
		if err := a.host.DisableEvents(a, src.id); err != nil {
			a.logger.Warn(ctx, "failed to disable source",
				observe.Field{Key: "source", Value: src.name},
				observe.Field{Key: "source_id", Value: src.id.String()},
				observe.Field{Key: "error", Value: err},
			)
			continue
		}
		a.metrics.RecordSourceEnabled(ctx, src.name, -1)
	}
	a.enabled = nil
	a.host.RemoveListener(a)

	a.pendingMu.Lock()
	a.pending = nil
	a.discovered = true
	a.pendingMu.Unlock()

	var err error
	if a.done != nil {
		select {
		case <-a.done:
		case <-ctx.Done():
			err = ctx.Err()
		}
	}

	a.logger.Info(ctx, "event counter aggregation stopped")
	return err
}

// Run starts the aggregator, blocks until ctx is done and then stops it.
func (a *Aggregator) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	return a.Stop(stopCtx)
}

// Current returns the latest verdict without blocking. Callers must not
// modify the returned Data map.
func (a *Aggregator) Current() health.Result {
	return *a.verdict.Load()
}

// Name returns CheckName.
func (a *Aggregator) Name() string {
	return CheckName
}

// Check returns the current verdict.
func (a *Aggregator) Check(context.Context) health.Result {
	return a.Current()
}

var (
	_ instrument.Listener = (*Aggregator)(nil)
	_ health.Checker      = (*Aggregator)(nil)
	_ Host                = (*instrument.Hub)(nil)
)
