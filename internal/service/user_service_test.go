package service

import (
	"context"
	"testing"
	"time"

	"travel-expense-api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestCreateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("valid user with supervisor", func(t *testing.T) {
		env := newTestEnv()
		supID := env.supervisor.ID.String()

		created, err := env.users.CreateUser(ctx, CreateUserRequest{
			Username:     "newhire",
			Email:        "newhire@example.com",
			Password:     "secret123",
			Profile:      model.ProfileEmployee,
			SupervisorID: &supID,
		})
		require.NoError(t, err)
		require.NotNil(t, created.SupervisorID)
		assert.Equal(t, env.supervisor.ID, *created.SupervisorID)

		stored := env.db.users[created.ID]
		assert.NotEqual(t, "secret123", stored.Password, "password must be hashed")
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("secret123")))
	})

	t.Run("invalid profile", func(t *testing.T) {
		env := newTestEnv()
		_, err := env.users.CreateUser(ctx, CreateUserRequest{
			Username: "x", Email: "x@example.com", Password: "secret123", Profile: "ADMIN",
		})
		require.Error(t, err)
		assert.Equal(t, KindValidationFailed, KindOf(err))
	})

	t.Run("duplicate username", func(t *testing.T) {
		env := newTestEnv()
		_, err := env.users.CreateUser(ctx, CreateUserRequest{
			Username: "employee", Email: "fresh@example.com", Password: "secret123", Profile: model.ProfileEmployee,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "username already exists")
	})

	t.Run("unknown supervisor", func(t *testing.T) {
		env := newTestEnv()
		ghost := newUUID().String()
		_, err := env.users.CreateUser(ctx, CreateUserRequest{
			Username: "y", Email: "y@example.com", Password: "secret123",
			Profile: model.ProfileEmployee, SupervisorID: &ghost,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "supervisor not found")
	})
}

func TestLoginAndRefresh(t *testing.T) {
	ctx := context.Background()

	seedCredentialed := func(env *testEnv) *model.User {
		hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.DefaultCost)
		require.NoError(t, err)
		user := env.seedUser("login-user", model.ProfileEmployee, false, &env.supervisor.ID)
		user.Password = string(hash)
		env.db.users[user.ID] = *user
		return user
	}

	t.Run("login issues both tokens", func(t *testing.T) {
		env := newTestEnv()
		seedCredentialed(env)

		tokens, err := env.users.Login(ctx, LoginUserRequest{Email: "login-user@example.com", Password: "hunter22"})
		require.NoError(t, err)
		assert.NotEmpty(t, tokens.Token)
		assert.NotEmpty(t, tokens.RefreshToken)
		assert.Contains(t, env.db.refreshTokens, tokens.RefreshToken)
	})

	t.Run("wrong password", func(t *testing.T) {
		env := newTestEnv()
		seedCredentialed(env)

		_, err := env.users.Login(ctx, LoginUserRequest{Email: "login-user@example.com", Password: "nope"})
		require.Error(t, err)
		assert.Equal(t, KindForbidden, KindOf(err))
	})

	t.Run("refresh rotates the token", func(t *testing.T) {
		env := newTestEnv()
		seedCredentialed(env)

		tokens, err := env.users.Login(ctx, LoginUserRequest{Email: "login-user@example.com", Password: "hunter22"})
		require.NoError(t, err)

		rotated, err := env.users.Refresh(ctx, tokens.RefreshToken)
		require.NoError(t, err)
		assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)
		assert.NotContains(t, env.db.refreshTokens, tokens.RefreshToken, "old token must be spent")
		assert.Contains(t, env.db.refreshTokens, rotated.RefreshToken)

		// A spent token cannot be replayed.
		_, err = env.users.Refresh(ctx, tokens.RefreshToken)
		require.Error(t, err)
		assert.Equal(t, KindForbidden, KindOf(err))
	})

	t.Run("expired refresh token is purged", func(t *testing.T) {
		env := newTestEnv()
		user := seedCredentialed(env)
		env.db.refreshTokens["stale"] = model.RefreshToken{
			ID:        newUUID(),
			UserID:    user.ID,
			Token:     "stale",
			ExpiresAt: time.Now().Add(-time.Hour),
		}

		_, err := env.users.Refresh(ctx, "stale")
		require.Error(t, err)
		assert.Equal(t, KindForbidden, KindOf(err))
		assert.NotContains(t, env.db.refreshTokens, "stale")
	})

	t.Run("logout deletes the token", func(t *testing.T) {
		env := newTestEnv()
		seedCredentialed(env)

		tokens, err := env.users.Login(ctx, LoginUserRequest{Email: "login-user@example.com", Password: "hunter22"})
		require.NoError(t, err)
		require.NoError(t, env.users.Logout(ctx, tokens.RefreshToken))
		assert.NotContains(t, env.db.refreshTokens, tokens.RefreshToken)
	})
}

func TestUpdateUserSupervisorChain(t *testing.T) {
	ctx := context.Background()

	t.Run("self supervision rejected", func(t *testing.T) {
		env := newTestEnv()
		self := env.employee.ID.String()

		_, err := env.users.UpdateUser(ctx, env.employee.ID, UpdateUserRequest{SupervisorID: &self})
		require.Error(t, err)
		assert.Equal(t, KindValidationFailed, KindOf(err))
	})

	t.Run("cycle through the chain rejected", func(t *testing.T) {
		env := newTestEnv()
		// employee -> supervisor; making supervisor report to employee closes
		// the loop.
		target := env.employee.ID.String()
		_, err := env.users.UpdateUser(ctx, env.supervisor.ID, UpdateUserRequest{SupervisorID: &target})
		require.Error(t, err)
		assert.Equal(t, KindValidationFailed, KindOf(err))
		assert.Contains(t, err.Error(), "cycle")
	})

	t.Run("clearing the supervisor", func(t *testing.T) {
		env := newTestEnv()
		empty := ""
		updated, err := env.users.UpdateUser(ctx, env.employee.ID, UpdateUserRequest{SupervisorID: &empty})
		require.NoError(t, err)
		assert.Nil(t, updated.SupervisorID)
		assert.Nil(t, env.db.users[env.employee.ID].SupervisorID)
	})

	t.Run("reassignment to a valid chain", func(t *testing.T) {
		env := newTestEnv()
		lead := env.seedUser("lead", model.ProfileManager, true, nil)
		leadID := lead.ID.String()

		updated, err := env.users.UpdateUser(ctx, env.employee.ID, UpdateUserRequest{SupervisorID: &leadID})
		require.NoError(t, err)
		require.NotNil(t, updated.SupervisorID)
		assert.Equal(t, lead.ID, *updated.SupervisorID)
	})

	t.Run("approver flag toggles", func(t *testing.T) {
		env := newTestEnv()
		flag := true
		updated, err := env.users.UpdateUser(ctx, env.employee.ID, UpdateUserRequest{IsApprover: &flag})
		require.NoError(t, err)
		assert.True(t, updated.IsApprover)
	})
}

func TestDeleteUser(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	require.NoError(t, env.users.DeleteUser(ctx, env.employee.ID))
	assert.NotContains(t, env.db.users, env.employee.ID)

	err := env.users.DeleteUser(ctx, newUUID())
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
}
