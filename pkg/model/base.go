// Package model holds the documents persisted by kaminari. Stored field names match the
// JSON names so that documents round-trip unchanged between the API and the store.
package model

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Base carries the identifier shared by every document. It is generated when the
// document is built, never by the store.
type Base struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
}

// NewBase returns a Base with a fresh identifier.
func NewBase() Base {
	return Base{ID: primitive.NewObjectID()}
}

// DocumentID returns the identifier.
func (b Base) DocumentID() primitive.ObjectID {
	return b.ID
}

// HexID returns the identifier as 24 hex characters.
func (b Base) HexID() string {
	return b.ID.Hex()
}
