package controller

import (
	"context"

	"github.com/kaminari-anilist/kaminari/pkg/model"
	"github.com/kaminari-anilist/kaminari/pkg/provider/watch2gether"
	"github.com/kaminari-anilist/kaminari/pkg/provider/youtube"
	"github.com/kaminari-anilist/kaminari/pkg/server/router"
	"github.com/kaminari-anilist/kaminari/pkg/service"
)

// RoomService is implemented by service.Rooms.
type RoomService interface {
	Create(ctx context.Context, req watch2gether.CreateRoomRequest) (*watch2gether.Room, model.TogetherRoom, error)
	Update(ctx context.Context, req service.UpdateRoomRequest) error
	List(ctx context.Context) ([]model.TogetherRoom, error)
	Enter(ctx context.Context, req service.EnterRoomRequest) (model.TogetherRoom, error)
	Leave(ctx context.Context, req service.EnterRoomRequest) (model.TogetherRoom, error)
}

// VideoService is implemented by service.Videos.
type VideoService interface {
	Search(ctx context.Context, req youtube.SearchRequest) (*youtube.VideoPage, error)
}

// TogetherController serves /api/Together: shared Watch2Gether rooms and the video
// search used to pick what plays in them.
type TogetherController struct {
	rooms  RoomService
	videos VideoService
}

func NewTogetherController(rooms RoomService, videos VideoService) *TogetherController {
	return &TogetherController{rooms: rooms, videos: videos}
}

func (t *TogetherController) Register(r router.Router, protected ...router.MiddlewareFunc) {
	g := r.Group("/Together", protected...)
	g.POST("/CreateRoom", t.CreateRoom)
	g.POST("/UpdateRoom", t.UpdateRoom)
	g.POST("/GetAllRooms", t.GetAllRooms)
	g.POST("/EnterRoom", t.EnterRoom)
	g.POST("/LeaveRoom", t.LeaveRoom)
	g.POST("/YTSearchVideo", t.YTSearchVideo)
}

// CreateRoom answers with the room as Watch2Gether reports it; the stored copy is what
// GetAllRooms lists.
func (t *TogetherController) CreateRoom(c router.Context) error {
	const origin = "Together.CreateRoom"
	var req watch2gether.CreateRoomRequest
	if err := BindOptional(c, &req); err != nil {
		return Error(c, origin, err)
	}
	room, _, err := t.rooms.Create(c.Request().Context(), req)
	return reply(c, origin, room, err)
}

func (t *TogetherController) UpdateRoom(c router.Context) error {
	const origin = "Together.UpdateRoom"
	var req service.UpdateRoomRequest
	if err := Bind(c, &req); err != nil {
		return Error(c, origin, err)
	}
	err := t.rooms.Update(c.Request().Context(), req)
	return reply(c, origin, req, err)
}

func (t *TogetherController) GetAllRooms(c router.Context) error {
	const origin = "Together.GetAllRooms"
	rooms, err := t.rooms.List(c.Request().Context())
	if err != nil {
		return Error(c, origin, err)
	}
	return OK(c, origin, rooms...)
}

func (t *TogetherController) EnterRoom(c router.Context) error {
	const origin = "Together.EnterRoom"
	var req service.EnterRoomRequest
	if err := Bind(c, &req); err != nil {
		return Error(c, origin, err)
	}
	room, err := t.rooms.Enter(c.Request().Context(), req)
	return reply(c, origin, room, err)
}

func (t *TogetherController) LeaveRoom(c router.Context) error {
	const origin = "Together.LeaveRoom"
	var req service.EnterRoomRequest
	if err := Bind(c, &req); err != nil {
		return Error(c, origin, err)
	}
	room, err := t.rooms.Leave(c.Request().Context(), req)
	return reply(c, origin, room, err)
}

func (t *TogetherController) YTSearchVideo(c router.Context) error {
	const origin = "Together.YTSearchVideo"
	var req youtube.SearchRequest
	if err := Bind(c, &req); err != nil {
		return Error(c, origin, err)
	}
	page, err := t.videos.Search(c.Request().Context(), req)
	return reply(c, origin, page, err)
}
