package recurring

import (
	"context"

	"github.com/poddle/poddle/pkg/loop"
)

// Task is one pass of a recurring worker.
//
// The bool reports whether this pass did something and more backlog may
// remain; the policy uses it to decide how soon to run again.
type Task[T any] func(context.Context, T) (T, bool, error)

// Applied binds the task to a policy, yielding a loop task.
func (rt Task[T]) Applied(p Policy) loop.Task[T] {
	return func(ctx context.Context, t T) (T, loop.Next) {
		new, ok, err := rt(ctx, t)
		return new, p.Next(ok, err)
	}
}
