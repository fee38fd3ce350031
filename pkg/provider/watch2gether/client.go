// Package watch2gether creates and drives Watch2Gether rooms.
package watch2gether

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kaminari-anilist/kaminari/pkg/apiclient"
)

const Name = "watch2gether"

var ErrInvalidArgument = errors.New("watch2gether: invalid argument")

// CreateRoomRequest describes a new room. The API key is added by the client.
type CreateRoomRequest struct {
	Share     string `json:"share,omitempty"`
	BgColor   string `json:"bg_color,omitempty"`
	BgOpacity string `json:"bg_opacity,omitempty"`
}

// Room is the create response.
type Room struct {
	ID                   int64     `json:"id"`
	StreamKey            string    `json:"streamkey"`
	CreatedAt            time.Time `json:"created_at"`
	Persistent           bool      `json:"persistent"`
	PersistentName       string    `json:"persistent_name,omitempty"`
	Deleted              bool      `json:"deleted"`
	Moderated            bool      `json:"moderated"`
	Location             string    `json:"location,omitempty"`
	StreamCreated        bool      `json:"stream_created"`
	Background           string    `json:"background,omitempty"`
	ModeratedBackground  bool      `json:"moderated_background"`
	ModeratedPlaylist    bool      `json:"moderated_playlist"`
	BgColor              string    `json:"bg_color,omitempty"`
	BgOpacity            float64   `json:"bg_opacity"`
	ModeratedItem        bool      `json:"moderated_item"`
	ThemeBg              string    `json:"theme_bg,omitempty"`
	PlaylistID           int64     `json:"playlist_id"`
	MembersOnly          bool      `json:"members_only"`
	ModeratedSuggestions bool      `json:"moderated_suggestions"`
	ModeratedChat        bool      `json:"moderated_chat"`
	ModeratedUser        bool      `json:"moderated_user"`
	ModeratedCam         bool      `json:"moderated_cam"`
}

type createBody struct {
	APIKey string `json:"w2g_api_key"`
	CreateRoomRequest
}

type syncBody struct {
	APIKey  string `json:"w2g_api_key"`
	ItemURL string `json:"item_url"`
}

// Client calls the Watch2Gether API. Room calls change state, so they are never cached.
type Client struct {
	api    *apiclient.Client
	apiKey string
}

func New(api *apiclient.Client, apiKey string) *Client {
	return &Client{api: api, apiKey: apiKey}
}

// CreateRoom opens a room, optionally preloaded with the share URL.
func (c *Client) CreateRoom(ctx context.Context, req CreateRoomRequest) (*Room, error) {
	var room Room
	if err := c.api.PostJSON(ctx, "rooms/create.json", createBody{APIKey: c.apiKey, CreateRoomRequest: req}, apiclient.Headers{}, &room); err != nil {
		return nil, err
	}
	if room.StreamKey == "" {
		return nil, fmt.Errorf("%s: create room returned no stream key: %w", Name, apiclient.ErrDecode)
	}
	return &room, nil
}

// SyncUpdate switches the video playing in the room identified by streamKey.
func (c *Client) SyncUpdate(ctx context.Context, streamKey, itemURL string) error {
	streamKey = strings.TrimSpace(streamKey)
	if streamKey == "" {
		return fmt.Errorf("%w: empty stream key", ErrInvalidArgument)
	}
	if u, err := url.Parse(itemURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: item url %q", ErrInvalidArgument, itemURL)
	}
	path := "rooms/" + url.PathEscape(streamKey) + "/sync_update"
	return c.api.PostJSON(ctx, path, syncBody{APIKey: c.apiKey, ItemURL: itemURL}, apiclient.Headers{}, nil)
}
