package eventbus

import (
	"log/slog"

	"github.com/vnykmshr/gopulse/pkg/eventbus/dispatch"
	"github.com/vnykmshr/gopulse/pkg/metrics"
)

// Bus dispatches events to registered listeners. Registration and posting
// are safe for concurrent use; the bus itself takes no lock around Post,
// delegating concurrency to the registry's copy-on-write sets and the
// configured dispatcher's discipline.
type Bus struct {
	identifier string
	executor   dispatch.Executor
	dispatcher dispatch.Dispatcher
	handler    ExceptionHandler
	logger     *slog.Logger
	registry   *registry

	metrics   *metrics.Registry
	metricsOn bool
}

// ConcurrentListener marks handler methods as safe for concurrent
// invocation. A listener implementing it names the methods that may run
// in parallel; every other handler method is serialised with a
// per-subscriber lock.
type ConcurrentListener interface {
	ConcurrentEvents() []string
}

// Config configures a Bus. Zero-value fields get defaults.
type Config struct {
	// Identifier names the bus in logs and metrics. Defaults to "default".
	Identifier string

	// Executor runs handler invocations. Defaults to dispatch.Direct().
	Executor dispatch.Executor

	// Dispatcher decides delivery order. Defaults to dispatch.Queued().
	Dispatcher dispatch.Dispatcher

	// ExceptionHandler receives subscriber failures. Defaults to a
	// handler that logs at error level.
	ExceptionHandler ExceptionHandler

	// Logger is used by the default exception handler and for failures of
	// the exception handler itself. Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics enables Prometheus instrumentation of the bus.
	Metrics metrics.Config
}

// New creates a synchronous bus: handlers run inline on the posting
// goroutine, with the queued dispatcher's per-goroutine ordering.
func New(identifier string) *Bus {
	return NewWithConfig(Config{Identifier: identifier})
}

// NewAsync creates an asynchronous bus on the given executor, using the
// legacy shared-queue dispatcher.
func NewAsync(identifier string, executor dispatch.Executor) *Bus {
	return NewWithConfig(Config{
		Identifier: identifier,
		Executor:   executor,
		Dispatcher: dispatch.LegacyAsync(),
	})
}

// NewWithConfig creates a bus from an explicit configuration.
func NewWithConfig(cfg Config) *Bus {
	if cfg.Identifier == "" {
		cfg.Identifier = "default"
	}
	if cfg.Executor == nil {
		cfg.Executor = dispatch.Direct()
	}
	if cfg.Dispatcher == nil {
		cfg.Dispatcher = dispatch.Queued()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ExceptionHandler == nil {
		cfg.ExceptionHandler = loggingHandler{logger: cfg.Logger}
	}

	b := &Bus{
		identifier: cfg.Identifier,
		executor:   cfg.Executor,
		dispatcher: cfg.Dispatcher,
		handler:    cfg.ExceptionHandler,
		logger:     cfg.Logger,
	}
	b.registry = newRegistry(b)

	if cfg.Metrics.Enabled {
		reg := metrics.DefaultRegistry
		if cfg.Metrics.Registry != nil {
			reg = metrics.NewRegistry(cfg.Metrics.Registry)
		}
		b.metrics = reg
		b.metricsOn = true
	}
	return b
}

// Identifier returns the bus's name.
func (b *Bus) Identifier() string {
	return b.identifier
}

// Register subscribes every handler method of the listener. Listeners
// with no handler methods register as a no-op.
func (b *Bus) Register(listener any) error {
	return b.registry.register(listener)
}

// Unregister removes every handler method of the listener. It returns an
// error wrapping errors.ErrNotRegistered if the listener was not
// registered with this bus.
func (b *Bus) Unregister(listener any) error {
	return b.registry.unregister(listener)
}

// Post delivers the event to every subscriber whose declared type the
// event is assignable to. If no subscriber matches and the event is not
// itself a DeadEvent, a DeadEvent wrapping it is posted instead.
func (b *Bus) Post(event any) {
	if event == nil {
		panic("eventbus: event must not be nil")
	}
	if b.metricsEnabled() {
		b.metrics.EventsPosted.WithLabelValues(b.identifier).Inc()
	}

	it := b.registry.iterator(event)
	if first, ok := it.Next(); ok {
		b.dispatcher.Dispatch(event, &prependIterator{head: first, rest: it})
		return
	}

	if _, isDead := event.(DeadEvent); !isDead {
		if b.metricsEnabled() {
			b.metrics.DeadEvents.WithLabelValues(b.identifier).Inc()
		}
		b.Post(DeadEvent{Source: b, Event: event})
	}
}

// handleSubscriberError forwards a subscriber failure to the exception
// handler. A panicking handler is logged and swallowed; letting it
// propagate would tear down the delivery path.
func (b *Bus) handleSubscriberError(err error, ctx ExceptionContext) {
	if b.metricsEnabled() {
		b.metrics.SubscriberErrors.WithLabelValues(b.identifier).Inc()
	}
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("eventbus: exception handler failed",
				"bus", b.identifier,
				"panic", r,
				"cause", err)
		}
	}()
	b.handler.HandleException(err, ctx)
}

func (b *Bus) metricsEnabled() bool {
	return b.metricsOn
}

// prependIterator re-attaches the subscriber consumed by the emptiness
// check in Post.
type prependIterator struct {
	head   dispatch.Subscriber
	served bool
	rest   dispatch.Iterator
}

func (it *prependIterator) Next() (dispatch.Subscriber, bool) {
	if !it.served {
		it.served = true
		return it.head, true
	}
	return it.rest.Next()
}

// String identifies the bus.
func (b *Bus) String() string {
	return "EventBus{" + b.identifier + "}"
}
