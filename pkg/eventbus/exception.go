package eventbus

import (
	"fmt"
	"log/slog"
)

// ExceptionContext captures where a subscriber failure happened.
type ExceptionContext struct {
	Bus        *Bus
	Event      any
	Listener   any
	MethodName string
}

// ExceptionHandler receives failures raised by subscribers. Handlers run
// on whatever goroutine executed the subscriber; a panicking handler is
// logged and swallowed by the bus.
type ExceptionHandler interface {
	HandleException(err error, ctx ExceptionContext)
}

// ExceptionHandlerFunc adapts a function to the ExceptionHandler interface.
type ExceptionHandlerFunc func(err error, ctx ExceptionContext)

// HandleException calls f(err, ctx).
func (f ExceptionHandlerFunc) HandleException(err error, ctx ExceptionContext) {
	f(err, ctx)
}

// loggingHandler is the default exception handler: it records the failure
// at error level and moves on.
type loggingHandler struct {
	logger *slog.Logger
}

func (h loggingHandler) HandleException(err error, ctx ExceptionContext) {
	h.logger.Error("eventbus: subscriber failed",
		"bus", ctx.Bus.Identifier(),
		"method", ctx.MethodName,
		"listener", fmt.Sprintf("%T", ctx.Listener),
		"event", fmt.Sprintf("%T", ctx.Event),
		"err", err)
}
