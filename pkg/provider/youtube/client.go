// Package youtube searches embeddable videos through the YouTube Data v3 API.
package youtube

import (
	"context"
	"strings"

	"github.com/kaminari-anilist/kaminari/pkg/apiclient"
	"github.com/samber/lo"
)

const Name = "youtube"

// SearchRequest mirrors the search.list parameters the room player needs.
type SearchRequest struct {
	Q               string `json:"q"`
	Type            string `json:"type,omitempty"`
	VideoEmbeddable *bool  `json:"videoEmbeddable,omitempty"`
	PageToken       string `json:"pageToken,omitempty"`
}

type PageInfo struct {
	TotalResults   int `json:"totalResults"`
	ResultsPerPage int `json:"resultsPerPage"`
}

type searchResponse struct {
	NextPageToken string       `json:"nextPageToken"`
	PrevPageToken string       `json:"prevPageToken"`
	PageInfo      PageInfo     `json:"pageInfo"`
	Items         []searchItem `json:"items"`
}

type searchItem struct {
	ID struct {
		Kind    string `json:"kind"`
		VideoID string `json:"videoId"`
	} `json:"id"`
}

// VideoPage is the detailed result of a search. The page tokens come from the search
// call so the caller can keep paging.
type VideoPage struct {
	Kind          string   `json:"kind,omitempty"`
	ETag          string   `json:"etag,omitempty"`
	Items         []Video  `json:"items"`
	PageInfo      PageInfo `json:"pageInfo"`
	NextPageToken string   `json:"nextPageInformation,omitempty"`
	PrevPageToken string   `json:"prevPageToken,omitempty"`
}

type Video struct {
	Kind           string          `json:"kind,omitempty"`
	ETag           string          `json:"etag,omitempty"`
	ID             string          `json:"id"`
	Snippet        *Snippet        `json:"snippet,omitempty"`
	ContentDetails *ContentDetails `json:"contentDetails,omitempty"`
	Statistics     *Statistics     `json:"statistics,omitempty"`
}

type Snippet struct {
	PublishedAt          string     `json:"publishedAt,omitempty"`
	ChannelID            string     `json:"channelId,omitempty"`
	Title                string     `json:"title"`
	Description          string     `json:"description,omitempty"`
	Thumbnails           Thumbnails `json:"thumbnails"`
	ChannelTitle         string     `json:"channelTitle,omitempty"`
	CategoryID           string     `json:"categoryId,omitempty"`
	LiveBroadcastContent string     `json:"liveBroadcastContent,omitempty"`
	DefaultLanguage      string     `json:"defaultLanguage,omitempty"`
	DefaultAudioLanguage string     `json:"defaultAudioLanguage,omitempty"`
	Localized            *Localized `json:"localized,omitempty"`
}

type Thumbnails struct {
	Default  *Thumbnail `json:"default,omitempty"`
	Medium   *Thumbnail `json:"medium,omitempty"`
	High     *Thumbnail `json:"high,omitempty"`
	Standard *Thumbnail `json:"standard,omitempty"`
	MaxRes   *Thumbnail `json:"maxres,omitempty"`
}

type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type Localized struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type ContentDetails struct {
	Duration        string `json:"duration,omitempty"`
	Dimension       string `json:"dimension,omitempty"`
	Definition      string `json:"definition,omitempty"`
	Caption         string `json:"caption,omitempty"`
	LicensedContent bool   `json:"licensedContent"`
	Projection      string `json:"projection,omitempty"`
}

// Statistics are decimal strings, as YouTube returns them.
type Statistics struct {
	ViewCount     string `json:"viewCount,omitempty"`
	LikeCount     string `json:"likeCount,omitempty"`
	FavoriteCount string `json:"favoriteCount,omitempty"`
	CommentCount  string `json:"commentCount,omitempty"`
}

type Client struct {
	api    *apiclient.Client
	apiKey string
}

func New(api *apiclient.Client, apiKey string) *Client {
	return &Client{api: api, apiKey: apiKey}
}

// Search runs search.list and then videos.list for the returned ids.
func (c *Client) Search(ctx context.Context, req SearchRequest) (*VideoPage, error) {
	q := apiclient.NewQuery().
		Str("key", c.apiKey).
		Str("part", "snippet").
		Str("q", req.Q).
		Str("type", req.Type).
		OptBool("videoEmbeddable", req.VideoEmbeddable).
		Str("pageToken", req.PageToken)

	var found searchResponse
	if err := c.api.Get(ctx, "search", q, apiclient.Headers{}, &found); err != nil {
		return nil, err
	}

	ids := lo.Uniq(lo.FilterMap(found.Items, func(item searchItem, _ int) (string, bool) {
		return item.ID.VideoID, item.ID.VideoID != ""
	}))

	page := &VideoPage{Items: []Video{}, PageInfo: found.PageInfo}
	if len(ids) > 0 {
		detail := apiclient.NewQuery().
			Str("key", c.apiKey).
			Str("part", "snippet,statistics").
			Str("id", strings.Join(ids, ","))
		if err := c.api.Get(ctx, "videos", detail, apiclient.Headers{}, page); err != nil {
			return nil, err
		}
	}
	page.NextPageToken = found.NextPageToken
	page.PrevPageToken = found.PrevPageToken
	return page, nil
}
