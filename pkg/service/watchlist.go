package service

import (
	"context"
	"strings"

	"github.com/kaminari-anilist/kaminari/pkg/envelope"
	"github.com/kaminari-anilist/kaminari/pkg/model"
	"github.com/kaminari-anilist/kaminari/pkg/observability/logger"
	"github.com/kaminari-anilist/kaminari/pkg/repository"
	"github.com/kaminari-anilist/kaminari/pkg/repository/domain"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// StatusStat is the per-status summary of a watch list.
type StatusStat struct {
	Status          string  `json:"my_status"`
	Count           int     `json:"count"`
	WatchedEpisodes int     `json:"watched_episodes"`
	AverageScore    float64 `json:"average_score"`
}

// Watchlist maintains a user's anime list and the counters of its profile.
type Watchlist struct {
	profiles repository.Repository[model.UserAnimeProfile]
	animes   repository.Repository[model.UserAnime]
	tx       repository.TransactionManager
	log      logger.Logger
}

func NewWatchlist(profiles repository.Repository[model.UserAnimeProfile], animes repository.Repository[model.UserAnime], tx repository.TransactionManager, log logger.Logger) *Watchlist {
	if tx == nil {
		tx = repository.NoTransaction
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Watchlist{profiles: profiles, animes: animes, tx: tx, log: log}
}

// ImportList stores an exported MyAnimeList for a user that has no list yet. The
// profile counters are recomputed from the imported entries.
func (w *Watchlist) ImportList(ctx context.Context, list model.FetchMyList) (model.MyAnimeList, error) {
	userID := strings.TrimSpace(list.UserID)
	if userID == "" {
		return model.MyAnimeList{}, invalid("userId is required", nil)
	}
	if _, found, err := w.profile(ctx, userID); err != nil {
		return model.MyAnimeList{}, err
	} else if found {
		return model.MyAnimeList{}, conflict(CodeProfileExists, "watch list already imported", nil)
	}

	profile := model.UserAnimeProfile{}
	if list.MyAnimeList.MyInfo != nil {
		profile = *list.MyAnimeList.MyInfo
	}
	profile.Base = model.NewBase()
	profile.UserID = userID
	if list.UserName != "" {
		profile.UserName = list.UserName
	}
	profile.ResetCounters()

	animes := lo.UniqBy(list.MyAnimeList.Anime, func(a model.UserAnime) int { return a.SeriesID })
	for i := range animes {
		animes[i].Base = model.NewBase()
		animes[i].UserID = userID
		animes[i].OldStatus = ""
		profile.AdjustStatus(animes[i].Status, 1)
		profile.AdjustTotal(1)
	}

	err := w.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if appErr := storeError(w.profiles.InsertOne(ctx, profile), "profile import failed", CodeProfileExists); appErr != nil {
			return appErr
		}
		if len(animes) == 0 {
			return nil
		}
		return storeFailure(w.animes.InsertMany(ctx, animes), "anime import failed", "")
	})
	if err != nil {
		return model.MyAnimeList{}, err
	}
	w.log.WithContext(ctx).Info("watch list imported", "user_id", userID, "anime", len(animes))
	return model.MyAnimeList{MyInfo: &profile, Anime: animes}, nil
}

// MyAllAnimes returns the profile of userID together with every list entry.
func (w *Watchlist) MyAllAnimes(ctx context.Context, userID string) (model.MyAnimeList, error) {
	if strings.TrimSpace(userID) == "" {
		return model.MyAnimeList{}, invalid("userId is required", nil)
	}

	var (
		profile model.UserAnimeProfile
		found   bool
		animes  []model.UserAnime
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile, found, err = w.profile(gctx, userID)
		return err
	})
	g.Go(func() error {
		env := w.animes.FilterByFromStore(gctx, repository.Eq(domain.AnimeUserID, userID),
			[]repository.SortOption{repository.Asc(domain.AnimeTitle.Name())}, nil)
		if env.IsError() {
			return storeError(env, "anime lookup failed", "")
		}
		animes = env.Items
		return nil
	})
	if err := g.Wait(); err != nil {
		return model.MyAnimeList{}, err
	}
	if !found {
		return model.MyAnimeList{}, notFound(CodeProfileNotFound, "watch list not found")
	}
	if animes == nil {
		animes = []model.UserAnime{}
	}
	return model.MyAnimeList{MyInfo: &profile, Anime: animes}, nil
}

// UpsertUserAnime inserts or updates the entry of anime.SeriesID for anime.UserID and
// moves the profile counters from the previous status to the new one. The previous
// status is the stored one when the entry exists, otherwise OldStatus.
func (w *Watchlist) UpsertUserAnime(ctx context.Context, anime model.UserAnime) (model.UserAnime, error) {
	if strings.TrimSpace(anime.UserID) == "" || anime.SeriesID <= 0 {
		return model.UserAnime{}, invalid("UserId and series_animedb_id are required", nil)
	}

	err := w.tx.WithTransaction(ctx, func(ctx context.Context) error {
		profile, found, err := w.profile(ctx, anime.UserID)
		if err != nil {
			return err
		}
		if !found {
			return notFound(CodeProfileNotFound, "watch list not found")
		}

		existing, exists, err := w.entry(ctx, anime.UserID, anime.SeriesID)
		if err != nil {
			return err
		}
		anime.Base = model.NewBase()
		if exists {
			anime.Base = existing.Base
			anime.OldStatus = existing.Status
		}

		env := w.animes.UpsertOne(ctx, entryFilter(anime.UserID, anime.SeriesID), anime)
		if appErr := storeError(env, "anime save failed", ""); appErr != nil {
			return appErr
		}

		if anime.OldStatus != anime.Status {
			profile.AdjustStatus(anime.OldStatus, -1)
			profile.AdjustStatus(anime.Status, 1)
		}
		if env.Message == repository.MsgInserted {
			profile.AdjustTotal(1)
		}
		return w.saveProfile(ctx, profile)
	})
	if err != nil {
		return model.UserAnime{}, err
	}
	return anime, nil
}

// DeleteUserAnime removes one entry and decrements the profile counters.
func (w *Watchlist) DeleteUserAnime(ctx context.Context, userID string, seriesID int) (model.UserAnime, error) {
	if strings.TrimSpace(userID) == "" || seriesID <= 0 {
		return model.UserAnime{}, invalid("UserId and series_animedb_id are required", nil)
	}

	var removed model.UserAnime
	err := w.tx.WithTransaction(ctx, func(ctx context.Context) error {
		env := w.animes.DeleteOne(ctx, entryFilter(userID, seriesID))
		switch {
		case env.IsError():
			return storeError(env, "anime delete failed", "")
		case env.Outcome == envelope.Warning:
			return notFound(CodeAnimeNotFound, "anime is not in the watch list")
		}
		removed, _ = env.First()

		profile, found, err := w.profile(ctx, userID)
		if err != nil || !found {
			return err
		}
		profile.AdjustStatus(removed.Status, -1)
		profile.AdjustTotal(-1)
		return w.saveProfile(ctx, profile)
	})
	if err != nil {
		return model.UserAnime{}, err
	}
	return removed, nil
}

// DeleteUserAnimes empties the watch list of userID and zeroes the profile counters.
// It returns the number of removed entries.
func (w *Watchlist) DeleteUserAnimes(ctx context.Context, userID string) (int, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, invalid("userId is required", nil)
	}

	var removed int
	err := w.tx.WithTransaction(ctx, func(ctx context.Context) error {
		env := w.animes.DeleteMany(ctx, repository.Eq(domain.AnimeUserID, userID))
		if env.IsError() {
			return storeError(env, "anime delete failed", "")
		}
		removed = deletedCount(env)

		profile, found, err := w.profile(ctx, userID)
		if err != nil || !found {
			return err
		}
		profile.ResetCounters()
		return w.saveProfile(ctx, profile)
	})
	return removed, err
}

// StatusSummary groups the entries of userID by status.
func (w *Watchlist) StatusSummary(ctx context.Context, userID string) ([]StatusStat, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, invalid("userId is required", nil)
	}
	env := w.animes.GroupAndAggregateWhere(ctx, repository.Eq(domain.AnimeUserID, userID), domain.AnimeStatus,
		repository.Sum(domain.AnimeWatchedEpisodes).Named("watched"),
		repository.Avg(domain.AnimeScore).Named("score"),
		repository.Tally[model.UserAnime]())
	if env.IsError() {
		return nil, storeError(env, "status summary failed", "")
	}
	return lo.Map(env.Items, func(g repository.GroupResult, _ int) StatusStat {
		status, _ := g.Key.(string)
		return StatusStat{
			Status:          status,
			Count:           int(g.Values["count"]),
			WatchedEpisodes: int(g.Values["watched"]),
			AverageScore:    g.Values["score"],
		}
	}), nil
}

// Entries returns the list entries of userID for the given series keyed by series id.
func (w *Watchlist) Entries(ctx context.Context, userID string, seriesIDs []int) (map[int]model.UserAnime, error) {
	if strings.TrimSpace(userID) == "" || len(seriesIDs) == 0 {
		return map[int]model.UserAnime{}, nil
	}
	filter := repository.Eq(domain.AnimeUserID, userID).And(repository.In(domain.AnimeSeriesID, lo.Uniq(seriesIDs)...))
	env := w.animes.FilterBy(ctx, filter)
	if env.IsError() {
		return nil, storeError(env, "anime lookup failed", "")
	}
	return lo.KeyBy(env.Items, func(a model.UserAnime) int { return a.SeriesID }), nil
}

func (w *Watchlist) profile(ctx context.Context, userID string) (model.UserAnimeProfile, bool, error) {
	env := w.profiles.FilterBy(ctx, repository.Eq(domain.ProfileUserID, userID))
	if env.IsError() {
		return model.UserAnimeProfile{}, false, storeError(env, "profile lookup failed", "")
	}
	p, ok := env.First()
	return p, ok, nil
}

func (w *Watchlist) entry(ctx context.Context, userID string, seriesID int) (model.UserAnime, bool, error) {
	env := w.animes.FilterBy(ctx, entryFilter(userID, seriesID))
	if env.IsError() {
		return model.UserAnime{}, false, storeError(env, "anime lookup failed", "")
	}
	a, ok := env.First()
	return a, ok, nil
}

func (w *Watchlist) saveProfile(ctx context.Context, p model.UserAnimeProfile) error {
	return storeFailure(w.profiles.ReplaceOne(ctx, repository.ByID[model.UserAnimeProfile](p.ID), p), "profile update failed", "")
}

func entryFilter(userID string, seriesID int) repository.Filter[model.UserAnime] {
	return repository.Eq(domain.AnimeUserID, userID).And(repository.Eq(domain.AnimeSeriesID, seriesID))
}
