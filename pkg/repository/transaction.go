package repository

import "context"

// TransactionManager runs a group of repository calls atomically.
// If fn returns an error every write made through ctx inside fn is rolled back.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// TransactionFunc adapts a function to TransactionManager.
type TransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error

// WithTransaction implements TransactionManager.
func (f TransactionFunc) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return f(ctx, fn)
}

// NoTransaction runs fn directly. It is used when the store cannot provide
// transactions, for example a standalone MongoDB server.
var NoTransaction TransactionManager = TransactionFunc(func(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
})
