package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/kaminari-anilist/kaminari/pkg/apiclient"
	"github.com/kaminari-anilist/kaminari/pkg/auth"
	"github.com/kaminari-anilist/kaminari/pkg/i18n"
	"github.com/kaminari-anilist/kaminari/pkg/observability/logger"
	"github.com/kaminari-anilist/kaminari/pkg/repository/domain"
	"github.com/kaminari-anilist/kaminari/pkg/repository/memory"
	"github.com/kaminari-anilist/kaminari/pkg/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func openRepos(t *testing.T) *domain.Repositories {
	t.Helper()
	repos, err := domain.Open(context.Background(), memory.NewStore(), domain.Options{Provision: true, Transactions: true})
	require.NoError(t, err)
	return repos
}

func requireAppError(t *testing.T, err error, code string, status int) {
	t.Helper()
	var appErr *i18n.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
	assert.Equal(t, status, appErr.HTTPStatus)
}

func newAccounts(t *testing.T) *Accounts {
	t.Helper()
	tokens, err := auth.NewHMACService(auth.HMACConfig{
		SigningKey: "0123456789abcdef0123456789abcdef",
		Issuer:     "kaminari",
		TTL:        time.Hour,
	}, logger.NewNop())
	require.NoError(t, err)
	return NewAccounts(openRepos(t).Users, tokens, auth.NewHasher(bcrypt.MinCost), nil)
}

func TestAccounts_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	accounts := newAccounts(t)

	user, err := accounts.Register(ctx, RegisterRequest{Email: " Mika@Example.com ", Password: "hunter2hunter2", NameSurname: "Mika Sora"})
	require.NoError(t, err)
	assert.Equal(t, "mika@example.com", user.UserName)
	assert.NotEqual(t, "hunter2hunter2", user.Password)
	require.NotNil(t, user.Role)
	assert.Equal(t, "Member", user.Role.RoleType)

	_, err = accounts.Register(ctx, RegisterRequest{Email: "mika@example.com", Password: "another-secret"})
	requireAppError(t, err, CodeUserNameTaken, http.StatusConflict)

	resp, err := accounts.Login(ctx, LoginRequest{Email: "MIKA@example.com", Password: "hunter2hunter2"})
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, user.HexID(), resp.MongoID)
	assert.Equal(t, "Mika Sora", resp.NameSurname)
	assert.True(t, resp.ExpireDate.After(time.Now()))

	_, err = accounts.Login(ctx, LoginRequest{Email: "mika@example.com", Password: "wrong-password"})
	requireAppError(t, err, CodeInvalidCredentials, http.StatusUnauthorized)
	_, err = accounts.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "hunter2hunter2"})
	requireAppError(t, err, CodeInvalidCredentials, http.StatusUnauthorized)
}

func TestAccounts_RegisterValidation(t *testing.T) {
	accounts := newAccounts(t)
	_, err := accounts.Register(context.Background(), RegisterRequest{Email: "  ", Password: "long-enough"})
	requireAppError(t, err, CodeInvalidRequest, http.StatusBadRequest)
	_, err = accounts.Register(context.Background(), RegisterRequest{Email: "a@b.c", Password: "short"})
	requireAppError(t, err, CodeInvalidRequest, http.StatusBadRequest)
}

func TestAccounts_ChangePassword(t *testing.T) {
	ctx := context.Background()
	accounts := newAccounts(t)
	_, err := accounts.Register(ctx, RegisterRequest{Email: "mika@example.com", Password: "first-password"})
	require.NoError(t, err)

	err = accounts.ChangePassword(ctx, ChangePasswordRequest{UserName: "mika@example.com", CurrentPassword: "nope-nope", NewPassword: "second-password"})
	requireAppError(t, err, CodeInvalidCredentials, http.StatusUnauthorized)

	require.NoError(t, accounts.ChangePassword(ctx, ChangePasswordRequest{UserName: "mika@example.com", CurrentPassword: "first-password", NewPassword: "second-password"}))

	_, err = accounts.Login(ctx, LoginRequest{Email: "mika@example.com", Password: "first-password"})
	requireAppError(t, err, CodeInvalidCredentials, http.StatusUnauthorized)
	_, err = accounts.Login(ctx, LoginRequest{Email: "mika@example.com", Password: "second-password"})
	require.NoError(t, err)
}

func TestAccounts_ChangeUserName(t *testing.T) {
	ctx := context.Background()
	accounts := newAccounts(t)
	mika, err := accounts.Register(ctx, RegisterRequest{Email: "mika@example.com", Password: "first-password"})
	require.NoError(t, err)
	_, err = accounts.Register(ctx, RegisterRequest{Email: "sora@example.com", Password: "first-password"})
	require.NoError(t, err)

	err = accounts.ChangeUserName(ctx, ChangeUserNameRequest{UserID: mika.HexID(), NewUserName: "sora@example.com"})
	requireAppError(t, err, CodeUserNameTaken, http.StatusConflict)

	require.NoError(t, accounts.ChangeUserName(ctx, ChangeUserNameRequest{UserID: mika.HexID(), NewUserName: "mika.new@example.com"}))
	require.NoError(t, accounts.ChangeUserName(ctx, ChangeUserNameRequest{UserID: mika.HexID(), NewUserName: "mika.new@example.com"}), "renaming to the current name is a no-op")

	_, err = accounts.Login(ctx, LoginRequest{Email: "mika.new@example.com", Password: "first-password"})
	require.NoError(t, err)

	err = accounts.ChangeUserName(ctx, ChangeUserNameRequest{UserID: "not-an-id", NewUserName: "x@example.com"})
	requireAppError(t, err, CodeInvalidRequest, http.StatusBadRequest)
	err = accounts.ChangeUserName(ctx, ChangeUserNameRequest{UserID: "65f1c0ffee0000000000beef", NewUserName: "x@example.com"})
	requireAppError(t, err, CodeUserNotFound, http.StatusNotFound)
}

func TestProviderError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"open breaker", resilience.ErrCircuitBreakerOpen, CodeProviderDown, http.StatusServiceUnavailable},
		{"wrapped breaker", errors.Join(apiclient.ErrUpstream, resilience.ErrCircuitBreakerOpen), CodeProviderDown, http.StatusServiceUnavailable},
		{"invalid argument", errors.New("jikan: invalid argument"), CodeInvalidRequest, http.StatusBadRequest},
		{"not found", &apiclient.StatusError{Provider: "jikan", StatusCode: 404}, CodeProviderNotFound, http.StatusNotFound},
		{"rate limited", &apiclient.StatusError{Provider: "jikan", StatusCode: 429}, CodeProviderLimited, http.StatusTooManyRequests},
		{"rejected", &apiclient.StatusError{Provider: "jikan", StatusCode: 401}, CodeProviderRejected, http.StatusBadGateway},
		{"server error", &apiclient.StatusError{Provider: "jikan", StatusCode: 503}, CodeProviderDown, http.StatusBadGateway},
		{"decode", apiclient.ErrDecode, CodeProviderDown, http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			appErr := providerError("jikan", tc.err)
			assert.Equal(t, tc.code, appErr.Code)
			assert.Equal(t, tc.status, appErr.HTTPStatus)
			assert.ErrorIs(t, appErr, tc.err)
		})
	}
}

func TestErrorCauses(t *testing.T) {
	assert.ErrorIs(t, invalid("bad", nil), ErrInvalidRequest)
	assert.ErrorIs(t, notFound(CodeRoomNotFound, "gone"), ErrNotFound)
	assert.ErrorIs(t, conflict(CodeUserNameTaken, "taken", nil), ErrConflict)
	assert.ErrorIs(t, invalidCredentials(), ErrInvalidCredentials)
	assert.ErrorIs(t, invalidCredentials(), auth.ErrPasswordMismatch)
}
