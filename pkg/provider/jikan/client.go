// Package jikan is a typed client for the Jikan v4 MyAnimeList API.
package jikan

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/kaminari-anilist/kaminari/pkg/apiclient"
)

// Name identifies the provider in metrics, spans and cache keys.
const Name = "jikan"

// ErrInvalidArgument is returned before any request is made.
var ErrInvalidArgument = errors.New("jikan: invalid argument")

var seasonNames = []string{"winter", "spring", "summer", "fall"}

type Client struct {
	api *apiclient.Client
}

func New(api *apiclient.Client) *Client {
	return &Client{api: api}
}

// Search queries /anime.
func (c *Client) Search(ctx context.Context, f SearchFilter) (*AnimeList, error) {
	q := apiclient.NewQuery().
		Str("q", f.Q).
		OptBool("sfw", f.SFW).
		OptBool("unapproved", f.Unapproved).
		Int("page", f.Page).
		Int("limit", f.Limit).
		Str("type", f.Type).
		Float("score", f.Score).
		Float("min_score", f.MinScore).
		Float("max_score", f.MaxScore).
		Str("status", f.Status).
		Str("rating", f.Rating).
		Str("genres", f.Genres).
		Str("genres_exclude", f.GenresExclude).
		Str("order_by", f.OrderBy).
		Str("sort", f.Sort).
		Str("letter", f.Letter).
		Str("producers", f.Producers).
		Str("start_date", f.StartDate).
		Str("end_date", f.EndDate)

	var out AnimeList
	if err := c.api.Get(ctx, "anime", q, apiclient.Headers{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TopTV returns the top ranked TV series.
func (c *Client) TopTV(ctx context.Context) (*AnimeList, error) {
	var out AnimeList
	if err := c.api.Get(ctx, "top/anime", apiclient.NewQuery().Str("type", "tv"), apiclient.Headers{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SeasonNow returns the current season. A zero page requests the first page.
func (c *Client) SeasonNow(ctx context.Context, page int) (*AnimeList, error) {
	var out AnimeList
	if err := c.api.Get(ctx, "seasons/now", apiclient.NewQuery().Int("page", page), apiclient.Headers{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Season returns the anime of a past or upcoming season.
func (c *Client) Season(ctx context.Context, year int, season string) (*AnimeList, error) {
	season = strings.ToLower(strings.TrimSpace(season))
	if year <= 0 || !slices.Contains(seasonNames, season) {
		return nil, fmt.Errorf("%w: season %d/%q", ErrInvalidArgument, year, season)
	}
	var out AnimeList
	if err := c.api.Get(ctx, fmt.Sprintf("seasons/%d/%s", year, season), nil, apiclient.Headers{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Seasons lists every year and season Jikan knows about.
func (c *Client) Seasons(ctx context.Context) (*Seasons, error) {
	var out Seasons
	if err := c.api.Get(ctx, "seasons", nil, apiclient.Headers{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Anime(ctx context.Context, malID int) (*AnimeDetail, error) {
	var out AnimeDetail
	if err := c.byID(ctx, malID, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Pictures(ctx context.Context, malID int) (*Pictures, error) {
	var out Pictures
	if err := c.byID(ctx, malID, "pictures", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Statistics(ctx context.Context, malID int) (*Statistics, error) {
	var out Statistics
	if err := c.byID(ctx, malID, "statistics", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Staff(ctx context.Context, malID int) (*Staff, error) {
	var out Staff
	if err := c.byID(ctx, malID, "staff", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Characters(ctx context.Context, malID int) (*Characters, error) {
	var out Characters
	if err := c.byID(ctx, malID, "characters", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) byID(ctx context.Context, malID int, sub string, out any) error {
	if malID <= 0 {
		return fmt.Errorf("%w: mal_id %d", ErrInvalidArgument, malID)
	}
	path := fmt.Sprintf("anime/%d", malID)
	if sub != "" {
		path += "/" + sub
	}
	return c.api.Get(ctx, path, nil, apiclient.Headers{}, out)
}
