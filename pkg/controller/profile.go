package controller

import (
	"context"
	"strconv"

	"github.com/kaminari-anilist/kaminari/pkg/model"
	"github.com/kaminari-anilist/kaminari/pkg/server/router"
	"github.com/kaminari-anilist/kaminari/pkg/service"
)

// WatchlistService is implemented by service.Watchlist.
type WatchlistService interface {
	ImportList(ctx context.Context, list model.FetchMyList) (model.MyAnimeList, error)
	MyAllAnimes(ctx context.Context, userID string) (model.MyAnimeList, error)
	UpsertUserAnime(ctx context.Context, anime model.UserAnime) (model.UserAnime, error)
	DeleteUserAnime(ctx context.Context, userID string, seriesID int) (model.UserAnime, error)
	DeleteUserAnimes(ctx context.Context, userID string) (int, error)
	StatusSummary(ctx context.Context, userID string) ([]service.StatusStat, error)
}

type userIDRequest struct {
	UserID string `json:"userId"`
}

// ProfileController serves /api/UserAnimeProfile. Every action works on the watch list of
// the token holder.
type ProfileController struct {
	watchlist WatchlistService
}

func NewProfileController(watchlist WatchlistService) *ProfileController {
	return &ProfileController{watchlist: watchlist}
}

func (p *ProfileController) Register(r router.Router, protected ...router.MiddlewareFunc) {
	g := r.Group("/UserAnimeProfile", protected...)
	g.POST("/FetchMyAnimeList", p.FetchMyAnimeList)
	g.POST("/MyAllAnimes", p.MyAllAnimes)
	g.POST("/DeleteUserAnime", p.DeleteUserAnime)
	g.POST("/InsertUserAnime", p.InsertUserAnime)
	g.POST("/DeleteUserAnimes", p.DeleteUserAnimes)
	g.POST("/StatusSummary", p.StatusSummary)
}

// FetchMyAnimeList imports a MyAnimeList export.
func (p *ProfileController) FetchMyAnimeList(c router.Context) error {
	const origin = "UserAnimeProfile.FetchMyAnimeList"
	var list model.FetchMyList
	if err := Bind(c, &list); err != nil {
		return Error(c, origin, err)
	}
	list.UserID = callerID(c, list.UserID)
	list.UserName = callerName(c, list.UserName)
	imported, err := p.watchlist.ImportList(c.Request().Context(), list)
	return reply(c, origin, imported, err)
}

func (p *ProfileController) MyAllAnimes(c router.Context) error {
	const origin = "UserAnimeProfile.MyAllAnimes"
	var req userIDRequest
	if err := BindOptional(c, &req); err != nil {
		return Error(c, origin, err)
	}
	list, err := p.watchlist.MyAllAnimes(c.Request().Context(), callerID(c, req.UserID))
	return reply(c, origin, list, err)
}

func (p *ProfileController) DeleteUserAnime(c router.Context) error {
	const origin = "UserAnimeProfile.DeleteUserAnime"
	var anime model.UserAnime
	if err := Bind(c, &anime); err != nil {
		return Error(c, origin, err)
	}
	deleted, err := p.watchlist.DeleteUserAnime(c.Request().Context(), callerID(c, anime.UserID), anime.SeriesID)
	return reply(c, origin, deleted, err)
}

// InsertUserAnime adds the entry or updates the stored one for the same series.
func (p *ProfileController) InsertUserAnime(c router.Context) error {
	const origin = "UserAnimeProfile.InsertUserAnime"
	var anime model.UserAnime
	if err := Bind(c, &anime); err != nil {
		return Error(c, origin, err)
	}
	anime.UserID = callerID(c, anime.UserID)
	saved, err := p.watchlist.UpsertUserAnime(c.Request().Context(), anime)
	return reply(c, origin, saved, err)
}

func (p *ProfileController) DeleteUserAnimes(c router.Context) error {
	const origin = "UserAnimeProfile.DeleteUserAnimes"
	var req userIDRequest
	if err := BindOptional(c, &req); err != nil {
		return Error(c, origin, err)
	}
	n, err := p.watchlist.DeleteUserAnimes(c.Request().Context(), callerID(c, req.UserID))
	if err != nil {
		return Error(c, origin, err)
	}
	return Done(c, origin, strconv.Itoa(n)+" deletions")
}

func (p *ProfileController) StatusSummary(c router.Context) error {
	const origin = "UserAnimeProfile.StatusSummary"
	var req userIDRequest
	if err := BindOptional(c, &req); err != nil {
		return Error(c, origin, err)
	}
	stats, err := p.watchlist.StatusSummary(c.Request().Context(), callerID(c, req.UserID))
	if err != nil {
		return Error(c, origin, err)
	}
	return OK(c, origin, stats...)
}
