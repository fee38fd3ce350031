package repository

import (
	"context"

	"github.com/kaminari-anilist/kaminari/pkg/envelope"
)

// FinishFunc is called once an operation has produced its envelope.
type FinishFunc func(outcome envelope.Outcome, err error)

// Observer is notified around every repository operation. It may return a derived
// context, for example one carrying a tracing span.
type Observer interface {
	Start(ctx context.Context, collection, operation string) (context.Context, FinishFunc)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, collection, operation string) (context.Context, FinishFunc)

// Start implements Observer.
func (f ObserverFunc) Start(ctx context.Context, collection, operation string) (context.Context, FinishFunc) {
	return f(ctx, collection, operation)
}

// Observers fans out to every non-nil observer in order.
func Observers(observers ...Observer) Observer {
	active := make([]Observer, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			active = append(active, o)
		}
	}
	return ObserverFunc(func(ctx context.Context, collection, operation string) (context.Context, FinishFunc) {
		finishers := make([]FinishFunc, 0, len(active))
		for _, o := range active {
			var finish FinishFunc
			ctx, finish = o.Start(ctx, collection, operation)
			if finish != nil {
				finishers = append(finishers, finish)
			}
		}
		return ctx, func(outcome envelope.Outcome, err error) {
			for i := len(finishers) - 1; i >= 0; i-- {
				finishers[i](outcome, err)
			}
		}
	})
}
