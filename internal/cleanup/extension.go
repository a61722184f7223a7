package cleanup

import "context"

// Event is passed to extensions after every executor run.
type Event struct {
	Mode   Mode
	Result Result
	Policy *Policy
}

// Extension runs custom logic after the built-in executor phase.
// Extensions run in registration order; an error is logged and does not stop the others.
type Extension interface {
	Name() string
	AfterCleanup(ctx context.Context, ev Event) error
}

type funcExtension struct {
	name string
	fn   func(ctx context.Context, ev Event) error
}

// NewExtension wraps fn as an Extension.
func NewExtension(name string, fn func(ctx context.Context, ev Event) error) Extension {
	return &funcExtension{name: name, fn: fn}
}

func (e *funcExtension) Name() string { return e.name }

func (e *funcExtension) AfterCleanup(ctx context.Context, ev Event) error {
	return e.fn(ctx, ev)
}
