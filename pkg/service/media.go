package service

import (
	"context"

	"github.com/kaminari-anilist/kaminari/pkg/provider/tmdb"
	"github.com/kaminari-anilist/kaminari/pkg/provider/youtube"
)

// MovieSource is the subset of the TMDB client the movie service uses.
type MovieSource interface {
	Discover(ctx context.Context, req tmdb.DiscoverRequest) (*tmdb.MoviePage, error)
	Recommendations(ctx context.Context, req tmdb.RecommendationRequest) (*tmdb.MoviePage, error)
	Search(ctx context.Context, req tmdb.SearchRequest) (*tmdb.MoviePage, error)
	Detail(ctx context.Context, req tmdb.DetailRequest) (*tmdb.MovieDetail, error)
}

// Movies proxies TMDB.
type Movies struct {
	source MovieSource
}

func NewMovies(source MovieSource) *Movies {
	return &Movies{source: source}
}

func (m *Movies) Discover(ctx context.Context, req tmdb.DiscoverRequest) (*tmdb.MoviePage, error) {
	return fetch(tmdb.Name, func() (*tmdb.MoviePage, error) { return m.source.Discover(ctx, req) })
}

func (m *Movies) Recommendations(ctx context.Context, req tmdb.RecommendationRequest) (*tmdb.MoviePage, error) {
	return fetch(tmdb.Name, func() (*tmdb.MoviePage, error) { return m.source.Recommendations(ctx, req) })
}

func (m *Movies) Search(ctx context.Context, req tmdb.SearchRequest) (*tmdb.MoviePage, error) {
	return fetch(tmdb.Name, func() (*tmdb.MoviePage, error) { return m.source.Search(ctx, req) })
}

func (m *Movies) Detail(ctx context.Context, req tmdb.DetailRequest) (*tmdb.MovieDetail, error) {
	return fetch(tmdb.Name, func() (*tmdb.MovieDetail, error) { return m.source.Detail(ctx, req) })
}

// VideoSource searches embeddable videos.
type VideoSource interface {
	Search(ctx context.Context, req youtube.SearchRequest) (*youtube.VideoPage, error)
}

// Videos proxies YouTube search for the room player.
type Videos struct {
	source VideoSource
}

func NewVideos(source VideoSource) *Videos {
	return &Videos{source: source}
}

func (v *Videos) Search(ctx context.Context, req youtube.SearchRequest) (*youtube.VideoPage, error) {
	if req.Q == "" {
		return nil, invalid("q is required", nil)
	}
	return fetch(youtube.Name, func() (*youtube.VideoPage, error) { return v.source.Search(ctx, req) })
}
