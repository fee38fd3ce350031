package controller

import (
	"context"

	"github.com/kaminari-anilist/kaminari/pkg/provider/jikan"
	"github.com/kaminari-anilist/kaminari/pkg/server/router"
)

// AnimeService is implemented by service.Anime.
type AnimeService interface {
	Search(ctx context.Context, f jikan.SearchFilter) (*jikan.AnimeList, error)
	TopTV(ctx context.Context) (*jikan.AnimeList, error)
	SeasonNow(ctx context.Context, page int, userID string) (*jikan.AnimeList, error)
	Season(ctx context.Context, year int, season, userID string) (*jikan.AnimeList, error)
	Seasons(ctx context.Context) (*jikan.Seasons, error)
	ByID(ctx context.Context, malID int) (*jikan.AnimeDetail, error)
	Pictures(ctx context.Context, malID int) (*jikan.Pictures, error)
	Statistics(ctx context.Context, malID int) (*jikan.Statistics, error)
	Staff(ctx context.Context, malID int) (*jikan.Staff, error)
	Characters(ctx context.Context, malID int) (*jikan.Characters, error)
}

type seriesIDRequest struct {
	SeriesID int `json:"series_animedb_id" binding:"required,gt=0"`
}

type malIDRequest struct {
	MalID int `json:"mal_id" binding:"required,gt=0"`
}

type pageRequest struct {
	Page   int    `json:"page" binding:"gte=0"`
	UserID string `json:"userId"`
}

type seasonRequest struct {
	Year   int    `json:"year" binding:"required,gt=1900"`
	Season string `json:"season" binding:"required,oneof=winter spring summer fall"`
	UserID string `json:"userId"`
}

// AnimeController serves /api/Anime.
type AnimeController struct {
	anime AnimeService
}

func NewAnimeController(anime AnimeService) *AnimeController {
	return &AnimeController{anime: anime}
}

func (a *AnimeController) Register(r router.Router, protected ...router.MiddlewareFunc) {
	g := r.Group("/Anime", protected...)
	g.POST("/AnimeById", a.AnimeByID)
	g.POST("/AnimePictures", a.AnimePictures)
	g.POST("/SearchAnime", a.SearchAnime)
	g.POST("/TopTvAnimes", a.TopTvAnimes)
	g.POST("/SeasonNowAnimes", a.SeasonNowAnimes)
	g.POST("/AllSeasons", a.AllSeasons)
	g.POST("/SearchSeasons", a.SearchSeasons)
	g.POST("/AnimeUserStats", a.AnimeUserStats)
	g.POST("/AnimeStaff", a.AnimeStaff)
	g.POST("/AnimeCharacters", a.AnimeCharacters)
}

func (a *AnimeController) AnimeByID(c router.Context) error {
	const origin = "Anime.AnimeById"
	var req seriesIDRequest
	if err := Bind(c, &req); err != nil {
		return Error(c, origin, err)
	}
	detail, err := a.anime.ByID(c.Request().Context(), req.SeriesID)
	return reply(c, origin, detail, err)
}

func (a *AnimeController) AnimePictures(c router.Context) error {
	const origin = "Anime.AnimePictures"
	var req seriesIDRequest
	if err := Bind(c, &req); err != nil {
		return Error(c, origin, err)
	}
	pictures, err := a.anime.Pictures(c.Request().Context(), req.SeriesID)
	return reply(c, origin, pictures, err)
}

// SearchAnime marks the results with the caller's watch-list status.
func (a *AnimeController) SearchAnime(c router.Context) error {
	const origin = "Anime.SearchAnime"
	var filter jikan.SearchFilter
	if err := BindOptional(c, &filter); err != nil {
		return Error(c, origin, err)
	}
	filter.UserID = callerID(c, filter.UserID)
	list, err := a.anime.Search(c.Request().Context(), filter)
	return reply(c, origin, list, err)
}

func (a *AnimeController) TopTvAnimes(c router.Context) error {
	const origin = "Anime.TopTvAnimes"
	list, err := a.anime.TopTV(c.Request().Context())
	return reply(c, origin, list, err)
}

// SeasonNowAnimes accepts an optional {page, userId} body.
func (a *AnimeController) SeasonNowAnimes(c router.Context) error {
	const origin = "Anime.SeasonNowAnimes"
	var req pageRequest
	if err := BindOptional(c, &req); err != nil {
		return Error(c, origin, err)
	}
	list, err := a.anime.SeasonNow(c.Request().Context(), req.Page, callerID(c, req.UserID))
	return reply(c, origin, list, err)
}

func (a *AnimeController) AllSeasons(c router.Context) error {
	const origin = "Anime.AllSeasons"
	seasons, err := a.anime.Seasons(c.Request().Context())
	return reply(c, origin, seasons, err)
}

func (a *AnimeController) SearchSeasons(c router.Context) error {
	const origin = "Anime.SearchSeasons"
	var req seasonRequest
	if err := Bind(c, &req); err != nil {
		return Error(c, origin, err)
	}
	list, err := a.anime.Season(c.Request().Context(), req.Year, req.Season, callerID(c, req.UserID))
	return reply(c, origin, list, err)
}

func (a *AnimeController) AnimeUserStats(c router.Context) error {
	const origin = "Anime.AnimeUserStats"
	var req malIDRequest
	if err := Bind(c, &req); err != nil {
		return Error(c, origin, err)
	}
	stats, err := a.anime.Statistics(c.Request().Context(), req.MalID)
	return reply(c, origin, stats, err)
}

func (a *AnimeController) AnimeStaff(c router.Context) error {
	const origin = "Anime.AnimeStaff"
	var req malIDRequest
	if err := Bind(c, &req); err != nil {
		return Error(c, origin, err)
	}
	staff, err := a.anime.Staff(c.Request().Context(), req.MalID)
	return reply(c, origin, staff, err)
}

func (a *AnimeController) AnimeCharacters(c router.Context) error {
	const origin = "Anime.AnimeCharacters"
	var req malIDRequest
	if err := Bind(c, &req); err != nil {
		return Error(c, origin, err)
	}
	characters, err := a.anime.Characters(c.Request().Context(), req.MalID)
	return reply(c, origin, characters, err)
}
