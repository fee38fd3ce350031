package tracing

import (
	"context"
	"strings"

	"github.com/kaminari-anilist/kaminari/pkg/envelope"
	"github.com/kaminari-anilist/kaminari/pkg/repository"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// RepositoryObserver returns an observer that wraps every repository operation in a
// database span. Warning envelopes keep an unset status; Error envelopes mark the
// span as failed.
func RepositoryObserver(system string) repository.Observer {
	return repository.ObserverFunc(func(ctx context.Context, collection, operation string) (context.Context, repository.FinishFunc) {
		ctx, span := StartDBSpan(ctx, DBCall{
			Op:         opFor(operation),
			System:     system,
			Collection: collection,
			Statement:  operation,
		})
		return ctx, func(outcome envelope.Outcome, err error) {
			span.SetAttributes(attribute.String("kaminari.outcome", string(outcome)))
			switch outcome {
			case envelope.Error:
				RecordError(span, err)
				if err == nil {
					span.SetStatus(codes.Error, "error envelope")
				}
			case envelope.Success, envelope.Info:
				RecordSuccess(span)
			}
			span.End()
		}
	})
}

func opFor(op string) Op {
	switch {
	case strings.HasPrefix(op, "Insert"):
		return OpInsert
	case strings.HasPrefix(op, "Upsert"), strings.HasPrefix(op, "Replace"), strings.HasPrefix(op, "Update"):
		return OpUpdate
	case strings.HasPrefix(op, "Delete"):
		return OpDelete
	case strings.HasPrefix(op, "Group"):
		return OpAggregate
	default:
		return OpQuery
	}
}
