// Package domain binds the generic repository to kaminari's documents: the queryable
// fields, the sort keys a client may name, the indexes and the backend selection.
package domain

import (
	"time"

	"github.com/kaminari-anilist/kaminari/pkg/model"
	"github.com/kaminari-anilist/kaminari/pkg/repository"
)

// User fields.
var (
	UserName    = repository.NewField("UserName", func(u model.User) string { return u.UserName })
	NameSurname = repository.NewField("NameSurname", func(u model.User) string { return u.NameSurname })
)

// Watch-list profile fields.
var (
	ProfileUserID   = repository.NewField("user_id", func(p model.UserAnimeProfile) string { return p.UserID })
	ProfileUserName = repository.NewField("user_name", func(p model.UserAnimeProfile) string { return p.UserName })
	ProfileTotal    = repository.NewField("user_total_anime", func(p model.UserAnimeProfile) int { return p.TotalAnime })
)

// Watch-list entry fields.
var (
	AnimeUserID          = repository.NewField("UserId", func(a model.UserAnime) string { return a.UserID })
	AnimeSeriesID        = repository.NewField("series_animedb_id", func(a model.UserAnime) int { return a.SeriesID })
	AnimeTitle           = repository.NewField("series_title", func(a model.UserAnime) string { return a.SeriesTitle })
	AnimeStatus          = repository.NewField("my_status", func(a model.UserAnime) string { return a.Status })
	AnimeScore           = repository.NewField("my_score", func(a model.UserAnime) int { return a.Score })
	AnimeWatchedEpisodes = repository.NewField("my_watched_episodes", func(a model.UserAnime) int { return a.WatchedEpisodes })
)

// Room fields.
var (
	RoomConnection = repository.NewField("RoomConnectionString", func(r model.TogetherRoom) string { return r.RoomConnectionString })
	RoomCreated    = repository.NewField("CreateDate", func(r model.TogetherRoom) time.Time { return r.CreateDate })
)

func userKeys() []repository.SortKey[model.User] {
	return []repository.SortKey[model.User]{
		repository.FoldedKey(UserName),
		repository.FoldedKey(NameSurname),
	}
}

func profileKeys() []repository.SortKey[model.UserAnimeProfile] {
	return []repository.SortKey[model.UserAnimeProfile]{
		repository.FoldedKey(ProfileUserName),
		repository.OrderedKey(ProfileTotal),
	}
}

func animeKeys() []repository.SortKey[model.UserAnime] {
	return []repository.SortKey[model.UserAnime]{
		repository.FoldedKey(AnimeTitle),
		repository.OrderedKey(AnimeSeriesID),
		repository.OrderedKey(AnimeStatus),
		repository.OrderedKey(AnimeScore),
		repository.OrderedKey(AnimeWatchedEpisodes),
	}
}

func roomKeys() []repository.SortKey[model.TogetherRoom] {
	return []repository.SortKey[model.TogetherRoom]{
		repository.TimeKey(RoomCreated),
		repository.OrderedKey(RoomConnection),
	}
}
