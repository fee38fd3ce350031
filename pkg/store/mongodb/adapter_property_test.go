package mongodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestProperty_ClosedAdapterRefusesWork(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 20
	properties := gopter.NewProperties(params)

	properties.Property("closed adapter never creates collections", prop.ForAll(
		func(name string) bool {
			_, err := closedAdapter().EnsureCollection(context.Background(), name)
			return errors.Is(err, ErrClosed)
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func TestProperty_OperationContextNeverExceedsTimeout(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("deadline is within the configured timeout", prop.ForAll(
		func(ms int) bool {
			timeout := time.Duration(ms) * time.Millisecond
			a := &Adapter{timeout: timeout}
			ctx, cancel := a.OperationContext(context.Background())
			defer cancel()
			deadline, ok := ctx.Deadline()
			return ok && time.Until(deadline) <= timeout
		},
		gen.IntRange(1, 10_000),
	))

	properties.TestingRun(t)
}
