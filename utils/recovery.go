package utils

import (
	"runtime/debug"
	"sync"
)

// RecoverFromPanic recovers from panics and logs them
func RecoverFromPanic(logger *Logger, context string) {
	if r := recover(); r != nil {
		stack := debug.Stack()
		logger.Error("Panic recovered in %s: %v\nStack trace:\n%s", context, r, string(stack))
	}
}

// SafeGroup runs goroutines with panic recovery and lets the caller wait
// for the ones still in flight.
type SafeGroup struct {
	wg     sync.WaitGroup
	logger *Logger
}

// NewSafeGroup creates a group that logs recovered panics to logger
func NewSafeGroup(logger *Logger) *SafeGroup {
	return &SafeGroup{logger: logger}
}

// Go runs fn in a new goroutine. A panic in fn is logged with context and
// does not take the process down.
func (g *SafeGroup) Go(context string, fn func()) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer RecoverFromPanic(g.logger, context)
		fn()
	}()
}

// Wait blocks until every goroutine started with Go has returned
func (g *SafeGroup) Wait() {
	g.wg.Wait()
}
