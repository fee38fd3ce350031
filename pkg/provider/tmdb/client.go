// Package tmdb is a typed client for the TMDB v3 movie API.
package tmdb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kaminari-anilist/kaminari/pkg/apiclient"
)

const (
	Name = "tmdb"

	DefaultLanguage = "tr-TR"
	DefaultAppend   = "videos,images"
)

var ErrInvalidArgument = errors.New("tmdb: invalid argument")

// Client calls TMDB with a read access token sent as a bearer header on every call.
type Client struct {
	api          *apiclient.Client
	auth         apiclient.Headers
	language     string
	imageBaseURL string
}

// Option configures a Client.
type Option func(*Client)

// WithLanguage sets the language used when a request does not name one.
func WithLanguage(lang string) Option {
	return func(c *Client) {
		if lang != "" {
			c.language = lang
		}
	}
}

// WithImageBaseURL turns poster and backdrop paths into absolute URLs.
func WithImageBaseURL(base string) Option {
	return func(c *Client) { c.imageBaseURL = strings.TrimRight(base, "/") }
}

func New(api *apiclient.Client, token string, opts ...Option) *Client {
	c := &Client{
		api:      api,
		auth:     apiclient.NewHeaders().Bearer(token),
		language: DefaultLanguage,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Discover pages through /discover/movie.
func (c *Client) Discover(ctx context.Context, req DiscoverRequest) (*MoviePage, error) {
	adult := false
	if req.IncludeAdult != nil {
		adult = *req.IncludeAdult
	}
	q := apiclient.NewQuery().
		Bool("include_adult", adult).
		Str("language", c.lang(req.Language)).
		Int("page", page(req.Page))
	return c.moviePage(ctx, "discover/movie", q)
}

func (c *Client) Recommendations(ctx context.Context, req RecommendationRequest) (*MoviePage, error) {
	id, err := movieID(req.ID)
	if err != nil {
		return nil, err
	}
	q := apiclient.NewQuery().
		Str("language", c.lang(req.Language)).
		Int("page", page(req.Page))
	return c.moviePage(ctx, fmt.Sprintf("movie/%d/recommendations", id), q)
}

func (c *Client) Search(ctx context.Context, req SearchRequest) (*MoviePage, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("%w: empty query", ErrInvalidArgument)
	}
	q := apiclient.NewQuery().
		Str("query", req.Query).
		Str("language", c.lang(req.Language)).
		Int("page", page(req.Page))
	return c.moviePage(ctx, "search/movie", q)
}

// Detail fetches a movie. Videos and images are appended unless the request names
// something else.
func (c *Client) Detail(ctx context.Context, req DetailRequest) (*MovieDetail, error) {
	id, err := movieID(req.ID)
	if err != nil {
		return nil, err
	}
	appendTo := req.AppendToResponse
	if appendTo == "" {
		appendTo = DefaultAppend
	}
	q := apiclient.NewQuery().
		Str("language", c.lang(req.Language)).
		Str("append_to_response", appendTo)

	var out MovieDetail
	if err := c.api.Get(ctx, fmt.Sprintf("movie/%d", id), q, c.auth, &out); err != nil {
		return nil, err
	}
	out.PosterURL = c.ImageURL(out.PosterPath)
	out.BackdropURL = c.ImageURL(out.BackdropPath)
	return &out, nil
}

// ImageURL resolves a TMDB file path. It returns "" when either part is missing.
func (c *Client) ImageURL(path string) string {
	if path == "" || c.imageBaseURL == "" {
		return ""
	}
	return c.imageBaseURL + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) moviePage(ctx context.Context, path string, q *apiclient.Query) (*MoviePage, error) {
	var out MoviePage
	if err := c.api.Get(ctx, path, q, c.auth, &out); err != nil {
		return nil, err
	}
	for i := range out.Results {
		m := &out.Results[i]
		m.PosterURL = c.ImageURL(m.PosterPath)
		m.BackdropURL = c.ImageURL(m.BackdropPath)
	}
	return &out, nil
}

func (c *Client) lang(requested string) string {
	if requested != "" {
		return requested
	}
	return c.language
}

func page(p int) int {
	if p <= 0 {
		return 1
	}
	return p
}

func movieID(raw string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: movie id %q", ErrInvalidArgument, raw)
	}
	return id, nil
}
