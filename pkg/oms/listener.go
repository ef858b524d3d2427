package oms

import (
	"go.uber.org/zap"

	"github.com/joripage/marketsim/pkg/oms/model"
)

// OrderListener receives order lifecycle notifications. Listeners are given
// snapshots; mutating them has no effect on engine state. A panicking
// listener is logged and skipped, it never aborts matching or other
// listeners.
type OrderListener interface {
	OnOrderStatus(order *model.Order)
	OnExecution(exec *model.Execution)
}

// AddListener registers l for status and execution events.
func (e *Engine) AddListener(l OrderListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, existing := range e.listeners {
		if existing == l {
			return
		}
	}
	e.listeners = append(e.listeners, l)
}

// RemoveListener unregisters l.
func (e *Engine) RemoveListener(l OrderListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, existing := range e.listeners {
		if existing == l {
			e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
			return
		}
	}
}

// notification is a deferred listener call, fired after the engine mutex is
// released so listeners may call back into the engine.
type notification func(l OrderListener)

func (e *Engine) notifyOrderStatus(order *model.Order) notification {
	snap := *order
	return func(l OrderListener) { l.OnOrderStatus(&snap) }
}

func (e *Engine) notifyExecution(exec *model.Execution) notification {
	snap := *exec
	return func(l OrderListener) { l.OnExecution(&snap) }
}

// dispatch fans pending notifications out to every listener in registration
// order, isolating panics per listener.
func (e *Engine) dispatch(pending []notification, listeners []OrderListener) {
	for _, n := range pending {
		for _, l := range listeners {
			e.safeNotify(n, l)
		}
	}
}

func (e *Engine) safeNotify(n notification, l OrderListener) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("order listener panicked", zap.Any("panic", r))
		}
	}()
	n(l)
}
