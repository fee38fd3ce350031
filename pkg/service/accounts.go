package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kaminari-anilist/kaminari/pkg/auth"
	"github.com/kaminari-anilist/kaminari/pkg/envelope"
	"github.com/kaminari-anilist/kaminari/pkg/i18n"
	"github.com/kaminari-anilist/kaminari/pkg/model"
	"github.com/kaminari-anilist/kaminari/pkg/observability/logger"
	"github.com/kaminari-anilist/kaminari/pkg/repository"
	"github.com/kaminari-anilist/kaminari/pkg/repository/domain"
	"go.mongodb.org/mongo-driver/bson"
)

const minPasswordLength = 8

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Issue(userID, userName string) (string, time.Time, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required"`
	NameSurname string `json:"nameSurname"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	NameSurname string    `json:"NameSurname"`
	MongoID     string    `json:"MongoId"`
	ImageURL    string    `json:"ImageUrl"`
	UserName    string    `json:"UserName"`
	Token       string    `json:"Token"`
	IsSuccess   bool      `json:"IsSuccess"`
	ExpireDate  time.Time `json:"ExpireDate"`
}

type ChangePasswordRequest struct {
	UserName        string `json:"userName"`
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

type ChangeUserNameRequest struct {
	UserID      string `json:"userId"`
	NewUserName string `json:"newUserName" binding:"required"`
}

// Accounts registers users, logs them in and maintains their credentials.
type Accounts struct {
	users  repository.Repository[model.User]
	tokens TokenIssuer
	hasher PasswordHasher
	log    logger.Logger
}

func NewAccounts(users repository.Repository[model.User], tokens TokenIssuer, hasher PasswordHasher, log logger.Logger) *Accounts {
	if log == nil {
		log = logger.NewNop()
	}
	return &Accounts{users: users, tokens: tokens, hasher: hasher, log: log}
}

// Register creates a member account. The user name is the e-mail address.
func (a *Accounts) Register(ctx context.Context, req RegisterRequest) (model.User, error) {
	email := normalizeEmail(req.Email)
	if email == "" {
		return model.User{}, invalid("email is required", nil)
	}
	if len(req.Password) < minPasswordLength {
		return model.User{}, invalid("password is too short", nil).
			WithDetails(map[string]any{"min_length": minPasswordLength})
	}

	if _, found, err := a.findByName(ctx, email); err != nil {
		return model.User{}, err
	} else if found {
		return model.User{}, conflict(CodeUserNameTaken, "user already exists", i18n.Params{"user": email})
	}

	hash, err := a.hasher.Hash(req.Password)
	if err != nil {
		return model.User{}, i18n.NewError(CodeStoreFailure, nil, err).WithMessage("hash password").WithHTTPStatus(http.StatusInternalServerError)
	}
	user := model.User{
		Base:        model.NewBase(),
		UserName:    email,
		NameSurname: strings.TrimSpace(req.NameSurname),
		Password:    hash,
		Role:        &model.UserRole{RoleType: model.RoleMember},
	}
	env := a.users.InsertOne(ctx, user)
	if appErr := storeError(env, "user registration failed", CodeUserNameTaken); appErr != nil {
		return model.User{}, appErr
	}
	a.log.WithContext(ctx).Info("user registered", "user_id", user.HexID())
	return user, nil
}

// Login verifies the credentials and issues an access token.
func (a *Accounts) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	user, found, err := a.findByName(ctx, normalizeEmail(req.Email))
	if err != nil {
		return LoginResponse{}, err
	}
	if !found || a.hasher.Compare(user.Password, req.Password) != nil {
		return LoginResponse{}, invalidCredentials()
	}

	token, expires, err := a.tokens.Issue(user.HexID(), user.UserName)
	if err != nil {
		return LoginResponse{}, i18n.NewError(CodeStoreFailure, nil, err).WithMessage("issue token").WithHTTPStatus(http.StatusInternalServerError)
	}
	return LoginResponse{
		NameSurname: user.NameSurname,
		MongoID:     user.HexID(),
		ImageURL:    user.ImageURL,
		UserName:    user.UserName,
		Token:       token,
		IsSuccess:   true,
		ExpireDate:  expires,
	}, nil
}

// ChangePassword replaces the password of userName after checking the current one.
func (a *Accounts) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	if len(req.NewPassword) < minPasswordLength {
		return invalid("password is too short", nil).WithDetails(map[string]any{"min_length": minPasswordLength})
	}
	user, found, err := a.findByName(ctx, normalizeEmail(req.UserName))
	if err != nil {
		return err
	}
	if !found || a.hasher.Compare(user.Password, req.CurrentPassword) != nil {
		return invalidCredentials()
	}
	hash, err := a.hasher.Hash(req.NewPassword)
	if err != nil {
		return i18n.NewError(CodeStoreFailure, nil, err).WithMessage("hash password").WithHTTPStatus(http.StatusInternalServerError)
	}
	env := a.users.UpdateOne(ctx, repository.ByID[model.User](user.ID),
		bson.D{{Key: "$set", Value: bson.D{{Key: "Password", Value: hash}}}})
	if appErr := storeError(env, "password change failed", ""); appErr != nil {
		return appErr
	}
	return nil
}

// ChangeUserName renames the account identified by UserID.
func (a *Accounts) ChangeUserName(ctx context.Context, req ChangeUserNameRequest) error {
	id, err := repository.ParseID(req.UserID)
	if err != nil {
		return invalid("invalid user id", err)
	}
	name := normalizeEmail(req.NewUserName)
	if name == "" {
		return invalid("new user name is required", nil)
	}

	if other, found, err := a.findByName(ctx, name); err != nil {
		return err
	} else if found && other.ID != id {
		return conflict(CodeUserNameTaken, "user name is taken", i18n.Params{"user": name})
	}

	env := a.users.UpdateOne(ctx, repository.ByID[model.User](id),
		bson.D{{Key: "$set", Value: bson.D{{Key: "UserName", Value: name}}}})
	switch {
	case env.Outcome == envelope.Warning:
		if a.users.GetByID(ctx, req.UserID).Len() == 0 {
			return notFound(CodeUserNotFound, "user not found")
		}
		return nil
	case env.IsError():
		return storeError(env, "user name change failed", CodeUserNameTaken)
	}
	return nil
}

func (a *Accounts) findByName(ctx context.Context, name string) (model.User, bool, error) {
	env := a.users.FilterBy(ctx, repository.Eq(domain.UserName, name))
	if env.IsError() {
		return model.User{}, false, storeError(env, "user lookup failed", "")
	}
	user, ok := env.First()
	return user, ok, nil
}

func invalidCredentials() *i18n.AppError {
	return i18n.NewError(CodeInvalidCredentials, nil, errors.Join(ErrInvalidCredentials, auth.ErrPasswordMismatch)).
		WithMessage("invalid user name or password").
		WithHTTPStatus(http.StatusUnauthorized)
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
