package repository

import "errors"

var (
	// ErrMalformedID is returned when an identifier is not a 24 character hex string.
	ErrMalformedID = errors.New("malformed document id")
	// ErrUnknownSortField is returned when a sort option names a field outside the allow-list.
	ErrUnknownSortField = errors.New("unknown sort field")
	// ErrInvalidPage is returned for page numbers or sizes below one.
	ErrInvalidPage = errors.New("invalid page option")
	// ErrUnsupportedAggregation is returned for aggregation kinds other than sum and avg.
	ErrUnsupportedAggregation = errors.New("unsupported aggregation")
	// ErrNoPredicates is returned by multi-predicate filters called with an empty list.
	ErrNoPredicates = errors.New("at least one predicate is required")
	// ErrUnsupportedFilter is returned by collections that cannot evaluate a filter form.
	ErrUnsupportedFilter = errors.New("unsupported filter")
	// ErrImmutableID is returned when a replacement would change the identifier of the matched document.
	ErrImmutableID = errors.New("document id is immutable")
	// ErrDuplicateKey is returned when a write violates a unique index.
	ErrDuplicateKey = errors.New("duplicate key")
)
