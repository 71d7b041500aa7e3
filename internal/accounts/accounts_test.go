package accounts_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/01moynul/pawshop-golang/internal/accounts"
	"github.com/01moynul/pawshop-golang/internal/apperr"
	"github.com/01moynul/pawshop-golang/internal/auth"
	"github.com/01moynul/pawshop-golang/internal/database/dbtest"
	"github.com/01moynul/pawshop-golang/internal/models"
	"github.com/01moynul/pawshop-golang/internal/store"
)

func setup(t *testing.T) (*accounts.Service, *auth.Tokens) {
	tokens := auth.NewTokens("secret", time.Hour)
	return accounts.NewService(store.New(dbtest.NewPool(t, 2)), tokens), tokens
}

func TestRegisterAndLogin(t *testing.T) {
	svc, tokens := setup(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, accounts.RegisterInput{FullName: "Ada", Email: "ada@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleCustomer, reg.User.Role)

	claims, err := tokens.ValidateToken(reg.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.UserID)

	_, err = svc.Register(ctx, accounts.RegisterInput{FullName: "Ada", Email: "ADA@example.com", Password: "whatever123"})
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))

	login, err := svc.Login(ctx, accounts.LoginInput{Email: "ada@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, login.User.ID)

	_, err = svc.Login(ctx, accounts.LoginInput{Email: "ada@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, accounts.ErrInvalidCredentials)
	_, err = svc.Login(ctx, accounts.LoginInput{Email: "nobody@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, accounts.ErrInvalidCredentials)
}

func TestCreateAdmin(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.CreateAdmin(ctx, "admin@example.com", "short", "Admin")
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))

	u, err := svc.CreateAdmin(ctx, "admin@example.com", "long enough", "Admin")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)
}
