package model

import (
	"time"

	"github.com/samber/lo"
)

// TogetherRoom is a Watch2Gether room known to kaminari.
type TogetherRoom struct {
	Base                 `bson:",inline"`
	RoomConnectionString string    `bson:"RoomConnectionString" json:"RoomConnectionString"`
	CreateDate           time.Time `bson:"CreateDate" json:"CreateDate"`
	ActiveUsers          []string  `bson:"ActiveUsers" json:"ActiveUsers"`
}

// Expired reports whether the room is older than ttl at now.
func (r TogetherRoom) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(r.CreateDate) > ttl
}

// WithUser returns a copy with user appended unless already present.
func (r TogetherRoom) WithUser(user string) TogetherRoom {
	if lo.Contains(r.ActiveUsers, user) {
		return r
	}
	r.ActiveUsers = append(lo.Without(r.ActiveUsers), user)
	return r
}

// WithoutUser returns a copy with every occurrence of user removed.
func (r TogetherRoom) WithoutUser(user string) TogetherRoom {
	r.ActiveUsers = lo.Without(r.ActiveUsers, user)
	return r
}
