/*
Copyright © 2023 The Spray Proxy Contributors

SPDX-License-Identifier: Apache-2.0
*/
package webhook

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Dispatcher receives every verified event. It runs before the delivery is
// acknowledged, so implementations should return quickly.
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event) error
}

// HandlerFunc handles events of one type.
type HandlerFunc func(ctx context.Context, event Event) error

// Registry dispatches events to the handlers registered for their type.
// Events of a type with no handlers are ignored.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string][]HandlerFunc
}

func NewRegistry() *Registry {
	return &Registry{handlers: map[string][]HandlerFunc{}}
}

// Register adds fn for eventType. Handlers run in registration order.
func (r *Registry) Register(eventType string, fn HandlerFunc) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[eventType] = append(r.handlers[eventType], fn)
}

// Types lists the event types with at least one handler.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Dispatch runs every handler for event.Type and joins their errors.
// A panicking handler is reported as an error.
func (r *Registry) Dispatch(ctx context.Context, event Event) error {
	r.mu.RLock()
	handlers := make([]HandlerFunc, len(r.handlers[event.Type]))
	copy(handlers, r.handlers[event.Type])
	r.mu.RUnlock()

	var errs []error
	for _, fn := range handlers {
		if err := safeCall(ctx, fn, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func safeCall(ctx context.Context, fn HandlerFunc, event Event) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%s handler panicked: %v", event.Type, p)
		}
	}()
	return fn(ctx, event)
}

// LogUserCreated logs the id of every newly created user.
func LogUserCreated(logger *zap.Logger) HandlerFunc {
	return func(_ context.Context, event Event) error {
		user, err := event.User()
		if err != nil {
			return err
		}
		logger.Info("new user created",
			zap.String("user-id", user.ID),
			zap.String("message-id", event.MessageID),
			zap.Int("email-addresses", len(user.EmailAddresses)),
		)
		return nil
	}
}
