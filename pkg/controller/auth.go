package controller

import (
	"context"

	"github.com/kaminari-anilist/kaminari/pkg/model"
	"github.com/kaminari-anilist/kaminari/pkg/server/router"
	"github.com/kaminari-anilist/kaminari/pkg/service"
)

// AccountService is implemented by service.Accounts.
type AccountService interface {
	Register(ctx context.Context, req service.RegisterRequest) (model.User, error)
	Login(ctx context.Context, req service.LoginRequest) (service.LoginResponse, error)
	ChangePassword(ctx context.Context, req service.ChangePasswordRequest) error
	ChangeUserName(ctx context.Context, req service.ChangeUserNameRequest) error
}

// AuthController serves /api/Auth. LogIn and RegisterUser are public.
type AuthController struct {
	accounts AccountService
}

func NewAuthController(accounts AccountService) *AuthController {
	return &AuthController{accounts: accounts}
}

func (a *AuthController) Register(r router.Router, protected ...router.MiddlewareFunc) {
	g := r.Group("/Auth")
	g.POST("/LogIn", a.LogIn)
	g.POST("/RegisterUser", a.RegisterUser)
	g.POST("/ChangePassword", a.ChangePassword, protected...)
	g.POST("/ChangeUserName", a.ChangeUserName, protected...)
}

func (a *AuthController) LogIn(c router.Context) error {
	const origin = "Auth.LogIn"
	var req service.LoginRequest
	if err := Bind(c, &req); err != nil {
		return Error(c, origin, err)
	}
	resp, err := a.accounts.Login(c.Request().Context(), req)
	return reply(c, origin, resp, err)
}

func (a *AuthController) RegisterUser(c router.Context) error {
	const origin = "Auth.RegisterUser"
	var req service.RegisterRequest
	if err := Bind(c, &req); err != nil {
		return Error(c, origin, err)
	}
	user, err := a.accounts.Register(c.Request().Context(), req)
	return reply(c, origin, user, err)
}

// ChangePassword acts on the account of the token holder.
func (a *AuthController) ChangePassword(c router.Context) error {
	const origin = "Auth.ChangePassword"
	var req service.ChangePasswordRequest
	if err := Bind(c, &req); err != nil {
		return Error(c, origin, err)
	}
	req.UserName = callerName(c, req.UserName)
	if err := a.accounts.ChangePassword(c.Request().Context(), req); err != nil {
		return Error(c, origin, err)
	}
	return Done(c, origin, "ChangePassword")
}

func (a *AuthController) ChangeUserName(c router.Context) error {
	const origin = "Auth.ChangeUserName"
	var req service.ChangeUserNameRequest
	if err := Bind(c, &req); err != nil {
		return Error(c, origin, err)
	}
	req.UserID = callerID(c, req.UserID)
	if err := a.accounts.ChangeUserName(c.Request().Context(), req); err != nil {
		return Error(c, origin, err)
	}
	return Done(c, origin, "ChangeUserName")
}
