package model

import (
	"context"
	"fmt"
)

// Event is a lifecycle transition hooks can attach to.
type Event int

const (
	// PreSave runs before validation and persistence; mutations made
	// here affect what gets persisted.
	PreSave Event = iota
	// PostSave runs after a successful write.
	PostSave
	// PreDelete runs before a document is removed.
	PreDelete
	// PostDelete runs after a successful removal.
	PostDelete
)

// String returns the event's name.
func (e Event) String() string {
	switch e {
	case PreSave:
		return "pre_save"
	case PostSave:
		return "post_save"
	case PreDelete:
		return "pre_delete"
	case PostDelete:
		return "post_delete"
	}
	return "unknown"
}

// HookFunc is a lifecycle callback. Hooks are synchronous and run on
// the calling goroutine; an error aborts the enclosing persistence
// operation.
type HookFunc func(ctx context.Context, inst *Instance) error

// Hooks is an ordered registry of lifecycle callbacks, attached to a
// model at construction time. Invocation order is registration order.
type Hooks struct {
	hooks map[Event][]HookFunc
}

// NewHooks creates an empty registry.
func NewHooks() *Hooks {
	return &Hooks{hooks: make(map[Event][]HookFunc)}
}

// Register appends a callback for an event.
func (h *Hooks) Register(event Event, fn HookFunc) {
	h.hooks[event] = append(h.hooks[event], fn)
}

// Len returns the number of callbacks registered for an event.
func (h *Hooks) Len(event Event) int {
	return len(h.hooks[event])
}

func (h *Hooks) run(ctx context.Context, event Event, inst *Instance) error {
	for _, fn := range h.hooks[event] {
		if err := fn(ctx, inst); err != nil {
			return fmt.Errorf("%s hook failed: %w", event, err)
		}
	}
	return nil
}
