package service

import (
	"context"

	"github.com/kaminari-anilist/kaminari/pkg/observability/logger"
	"github.com/kaminari-anilist/kaminari/pkg/provider/jikan"
	"github.com/samber/lo"
)

// AnimeSource is the subset of the Jikan client the anime service uses.
type AnimeSource interface {
	Search(ctx context.Context, f jikan.SearchFilter) (*jikan.AnimeList, error)
	TopTV(ctx context.Context) (*jikan.AnimeList, error)
	SeasonNow(ctx context.Context, page int) (*jikan.AnimeList, error)
	Season(ctx context.Context, year int, season string) (*jikan.AnimeList, error)
	Seasons(ctx context.Context) (*jikan.Seasons, error)
	Anime(ctx context.Context, malID int) (*jikan.AnimeDetail, error)
	Pictures(ctx context.Context, malID int) (*jikan.Pictures, error)
	Statistics(ctx context.Context, malID int) (*jikan.Statistics, error)
	Staff(ctx context.Context, malID int) (*jikan.Staff, error)
	Characters(ctx context.Context, malID int) (*jikan.Characters, error)
}

// Anime proxies the Jikan catalog and marks the entries the caller already has in
// their watch list.
type Anime struct {
	source    AnimeSource
	watchlist *Watchlist
	log       logger.Logger
}

func NewAnime(source AnimeSource, watchlist *Watchlist, log logger.Logger) *Anime {
	if log == nil {
		log = logger.NewNop()
	}
	return &Anime{source: source, watchlist: watchlist, log: log}
}

func (a *Anime) Search(ctx context.Context, f jikan.SearchFilter) (*jikan.AnimeList, error) {
	list, err := a.source.Search(ctx, f)
	if err != nil {
		return nil, providerError(jikan.Name, err)
	}
	a.mark(ctx, f.UserID, list)
	return list, nil
}

func (a *Anime) TopTV(ctx context.Context) (*jikan.AnimeList, error) {
	list, err := a.source.TopTV(ctx)
	if err != nil {
		return nil, providerError(jikan.Name, err)
	}
	return list, nil
}

func (a *Anime) SeasonNow(ctx context.Context, page int, userID string) (*jikan.AnimeList, error) {
	list, err := a.source.SeasonNow(ctx, page)
	if err != nil {
		return nil, providerError(jikan.Name, err)
	}
	a.mark(ctx, userID, list)
	return list, nil
}

func (a *Anime) Season(ctx context.Context, year int, season, userID string) (*jikan.AnimeList, error) {
	list, err := a.source.Season(ctx, year, season)
	if err != nil {
		return nil, providerError(jikan.Name, err)
	}
	a.mark(ctx, userID, list)
	return list, nil
}

func (a *Anime) Seasons(ctx context.Context) (*jikan.Seasons, error) {
	return fetch(jikan.Name, func() (*jikan.Seasons, error) { return a.source.Seasons(ctx) })
}

func (a *Anime) ByID(ctx context.Context, malID int) (*jikan.AnimeDetail, error) {
	return fetch(jikan.Name, func() (*jikan.AnimeDetail, error) { return a.source.Anime(ctx, malID) })
}

func (a *Anime) Pictures(ctx context.Context, malID int) (*jikan.Pictures, error) {
	return fetch(jikan.Name, func() (*jikan.Pictures, error) { return a.source.Pictures(ctx, malID) })
}

func (a *Anime) Statistics(ctx context.Context, malID int) (*jikan.Statistics, error) {
	return fetch(jikan.Name, func() (*jikan.Statistics, error) { return a.source.Statistics(ctx, malID) })
}

func (a *Anime) Staff(ctx context.Context, malID int) (*jikan.Staff, error) {
	return fetch(jikan.Name, func() (*jikan.Staff, error) { return a.source.Staff(ctx, malID) })
}

func (a *Anime) Characters(ctx context.Context, malID int) (*jikan.Characters, error) {
	return fetch(jikan.Name, func() (*jikan.Characters, error) { return a.source.Characters(ctx, malID) })
}

// mark copies my_status and my_score from the watch list of userID. A failed lookup
// leaves the list unmarked.
func (a *Anime) mark(ctx context.Context, userID string, list *jikan.AnimeList) {
	if a.watchlist == nil || userID == "" || list == nil || len(list.Data) == 0 {
		return
	}
	ids := lo.Map(list.Data, func(item jikan.Anime, _ int) int { return item.MalID })
	entries, err := a.watchlist.Entries(ctx, userID, ids)
	if err != nil {
		a.log.WithContext(ctx).Warn("watch list lookup failed, returning unmarked list", "user_id", userID, "error", err)
		return
	}
	for i := range list.Data {
		if entry, ok := entries[list.Data[i].MalID]; ok {
			list.Data[i].MyStatus = entry.Status
			list.Data[i].MyScore = lo.ToPtr(entry.Score)
		}
	}
}

func fetch[T any](provider string, call func() (T, error)) (T, error) {
	out, err := call()
	if err != nil {
		var zero T
		return zero, providerError(provider, err)
	}
	return out, nil
}
