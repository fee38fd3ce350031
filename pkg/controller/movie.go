package controller

import (
	"context"

	"github.com/kaminari-anilist/kaminari/pkg/provider/tmdb"
	"github.com/kaminari-anilist/kaminari/pkg/server/router"
)

// MovieService is implemented by service.Movies.
type MovieService interface {
	Discover(ctx context.Context, req tmdb.DiscoverRequest) (*tmdb.MoviePage, error)
	Recommendations(ctx context.Context, req tmdb.RecommendationRequest) (*tmdb.MoviePage, error)
	Search(ctx context.Context, req tmdb.SearchRequest) (*tmdb.MoviePage, error)
	Detail(ctx context.Context, req tmdb.DetailRequest) (*tmdb.MovieDetail, error)
}

// MovieController serves /api/Movie.
type MovieController struct {
	movies MovieService
}

func NewMovieController(movies MovieService) *MovieController {
	return &MovieController{movies: movies}
}

func (m *MovieController) Register(r router.Router, protected ...router.MiddlewareFunc) {
	g := r.Group("/Movie", protected...)
	g.POST("/DiscoverMovie", m.DiscoverMovie)
	g.POST("/RecommandationMovie", m.RecommendationMovie)
	g.POST("/MovieDetail", m.MovieDetail)
	g.POST("/SearchMovie", m.SearchMovie)
}

func (m *MovieController) DiscoverMovie(c router.Context) error {
	const origin = "Movie.DiscoverMovie"
	var req tmdb.DiscoverRequest
	if err := BindOptional(c, &req); err != nil {
		return Error(c, origin, err)
	}
	page, err := m.movies.Discover(c.Request().Context(), req)
	return reply(c, origin, page, err)
}

func (m *MovieController) RecommendationMovie(c router.Context) error {
	const origin = "Movie.RecommandationMovie"
	var req tmdb.RecommendationRequest
	if err := Bind(c, &req); err != nil {
		return Error(c, origin, err)
	}
	page, err := m.movies.Recommendations(c.Request().Context(), req)
	return reply(c, origin, page, err)
}

func (m *MovieController) MovieDetail(c router.Context) error {
	const origin = "Movie.MovieDetail"
	var req tmdb.DetailRequest
	if err := Bind(c, &req); err != nil {
		return Error(c, origin, err)
	}
	detail, err := m.movies.Detail(c.Request().Context(), req)
	return reply(c, origin, detail, err)
}

func (m *MovieController) SearchMovie(c router.Context) error {
	const origin = "Movie.SearchMovie"
	var req tmdb.SearchRequest
	if err := Bind(c, &req); err != nil {
		return Error(c, origin, err)
	}
	page, err := m.movies.Search(c.Request().Context(), req)
	return reply(c, origin, page, err)
}
