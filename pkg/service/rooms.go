package service

import (
	"context"
	"strings"
	"time"

	"github.com/kaminari-anilist/kaminari/pkg/model"
	"github.com/kaminari-anilist/kaminari/pkg/observability/logger"
	"github.com/kaminari-anilist/kaminari/pkg/provider/watch2gether"
	"github.com/kaminari-anilist/kaminari/pkg/repository"
	"github.com/kaminari-anilist/kaminari/pkg/repository/domain"
)

const (
	DefaultRoomTTL       = 24 * time.Hour
	DefaultRoomURLPrefix = "https://w2g.tv/tr/room/?r="
)

// RoomSource creates and drives Watch2Gether rooms.
type RoomSource interface {
	CreateRoom(ctx context.Context, req watch2gether.CreateRoomRequest) (*watch2gether.Room, error)
	SyncUpdate(ctx context.Context, streamKey, itemURL string) error
}

type UpdateRoomRequest struct {
	StreamKey string `json:"streamkey" binding:"required"`
	ItemURL   string `json:"item_url" binding:"required"`
}

type EnterRoomRequest struct {
	RoomConnectionString string `json:"roomConnectionString" binding:"required"`
	UserName             string `json:"userName" binding:"required"`
}

// RoomsOptions configures Rooms. Zero values fall back to the defaults.
type RoomsOptions struct {
	TTL       time.Duration
	URLPrefix string
	Now       func() time.Time
}

// Rooms keeps the list of shared watch rooms and their members.
type Rooms struct {
	rooms  repository.Repository[model.TogetherRoom]
	source RoomSource
	opts   RoomsOptions
	log    logger.Logger
}

func NewRooms(rooms repository.Repository[model.TogetherRoom], source RoomSource, opts RoomsOptions, log logger.Logger) *Rooms {
	if opts.TTL <= 0 {
		opts.TTL = DefaultRoomTTL
	}
	if opts.URLPrefix == "" {
		opts.URLPrefix = DefaultRoomURLPrefix
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Rooms{rooms: rooms, source: source, opts: opts, log: log}
}

// Create opens a Watch2Gether room and records it.
func (r *Rooms) Create(ctx context.Context, req watch2gether.CreateRoomRequest) (*watch2gether.Room, model.TogetherRoom, error) {
	created, err := r.source.CreateRoom(ctx, req)
	if err != nil {
		return nil, model.TogetherRoom{}, providerError(watch2gether.Name, err)
	}
	room := model.TogetherRoom{
		Base:                 model.NewBase(),
		RoomConnectionString: r.opts.URLPrefix + created.StreamKey,
		CreateDate:           r.opts.Now().UTC(),
		ActiveUsers:          []string{},
	}
	if err := storeFailure(r.rooms.InsertOne(ctx, room), "room save failed", ""); err != nil {
		return nil, model.TogetherRoom{}, err
	}
	r.log.WithContext(ctx).Info("room created", "room", room.RoomConnectionString)
	return created, room, nil
}

// Update makes the room play itemURL.
func (r *Rooms) Update(ctx context.Context, req UpdateRoomRequest) error {
	if err := r.source.SyncUpdate(ctx, req.StreamKey, req.ItemURL); err != nil {
		return providerError(watch2gether.Name, err)
	}
	return nil
}

// List deletes the rooms older than the TTL and returns the rest, newest first.
func (r *Rooms) List(ctx context.Context) ([]model.TogetherRoom, error) {
	cutoff := r.opts.Now().Add(-r.opts.TTL)
	purged := r.rooms.DeleteMany(ctx, repository.Before(domain.RoomCreated, cutoff))
	if purged.IsError() {
		return nil, storeError(purged, "room cleanup failed", "")
	}
	if n := deletedCount(purged); n > 0 {
		r.log.WithContext(ctx).Debug("expired rooms removed", "count", n)
	}

	env := r.rooms.FilterByFromStore(ctx, repository.All[model.TogetherRoom](),
		[]repository.SortOption{repository.Desc(domain.RoomCreated.Name())}, nil)
	if env.IsError() {
		return nil, storeError(env, "room lookup failed", "")
	}
	if env.Items == nil {
		return []model.TogetherRoom{}, nil
	}
	return env.Items, nil
}

// Enter adds userName to the members of the room.
func (r *Rooms) Enter(ctx context.Context, req EnterRoomRequest) (model.TogetherRoom, error) {
	return r.members(ctx, req, model.TogetherRoom.WithUser)
}

// Leave removes userName from the members of the room.
func (r *Rooms) Leave(ctx context.Context, req EnterRoomRequest) (model.TogetherRoom, error) {
	return r.members(ctx, req, model.TogetherRoom.WithoutUser)
}

func (r *Rooms) members(ctx context.Context, req EnterRoomRequest, change func(model.TogetherRoom, string) model.TogetherRoom) (model.TogetherRoom, error) {
	user := strings.TrimSpace(req.UserName)
	if req.RoomConnectionString == "" || user == "" {
		return model.TogetherRoom{}, invalid("roomConnectionString and userName are required", nil)
	}
	env := r.rooms.FilterBy(ctx, repository.Eq(domain.RoomConnection, req.RoomConnectionString))
	if env.IsError() {
		return model.TogetherRoom{}, storeError(env, "room lookup failed", "")
	}
	room, ok := env.First()
	if !ok {
		return model.TogetherRoom{}, notFound(CodeRoomNotFound, "room not found")
	}

	room = change(room, user)
	if room.ActiveUsers == nil {
		room.ActiveUsers = []string{}
	}
	if err := storeFailure(r.rooms.ReplaceOne(ctx, repository.ByID[model.TogetherRoom](room.ID), room), "room update failed", ""); err != nil {
		return model.TogetherRoom{}, err
	}
	return room, nil
}
