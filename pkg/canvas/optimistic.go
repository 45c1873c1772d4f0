package canvas

import "context"

// Change is a local state mutation and its inverse.
type Change struct {
	Apply  func()
	Revert func()
}

// Optimistic applies change, runs remote, and reverts the change if remote
// fails. The remote error is returned unchanged.
func Optimistic(ctx context.Context, change Change, remote func(context.Context) error) error {
	if change.Apply != nil {
		change.Apply()
	}
	if err := remote(ctx); err != nil {
		if change.Revert != nil {
			change.Revert()
		}
		return err
	}
	return nil
}

// Confirmed runs remote and applies the local change only once it succeeds.
// Used where local state must never run ahead of the store, such as removal.
func Confirmed(ctx context.Context, remote func(context.Context) error, apply func()) error {
	if err := remote(ctx); err != nil {
		return err
	}
	if apply != nil {
		apply()
	}
	return nil
}
