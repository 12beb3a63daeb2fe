package services

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard-backend/pkg/models"
)

func TestSignUpHashesPassword(t *testing.T) {
	e := newEnv(t)
	user := e.user(t, "alice")

	assert.NotEqual(t, "secret123", user.Password)
	assert.True(t, NewPasswordHasher(4).Compare(user.Password, "secret123"))
	assert.Equal(t, "alice@example.com", user.Email)
}

func TestSignUpDuplicateConflicts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "alice")

	_, err := e.users.SignUp(ctx, models.UserRegisterRequest{
		Username: "alice2", FirstName: "Ali", LastName: "Ce", Email: "ALICE@example.com", Password: "secret123",
	})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = e.users.SignUp(ctx, models.UserRegisterRequest{
		Username: "alice", FirstName: "Ali", LastName: "Ce", Email: "other@example.com", Password: "secret123",
	})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestLogin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := e.user(t, "alice")

	resp, err := e.users.Login(ctx, "Alice@Example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "token-for-"+user.ID, resp.AccessToken)

	_, err = e.users.Login(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = e.users.Login(ctx, "nobody@example.com", "secret123")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateMe(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice")
	e.user(t, "bobby")

	updated, err := e.users.UpdateMe(ctx, alice.ID, models.UserPatch{FirstName: strPtr("Alicia"), Password: strPtr("newpass1")})
	require.NoError(t, err)
	assert.Equal(t, "Alicia", updated.FirstName)
	assert.Equal(t, "alice", updated.Username)

	_, err = e.users.Login(ctx, alice.Email, "newpass1")
	assert.NoError(t, err)

	_, err = e.users.UpdateMe(ctx, alice.ID, models.UserPatch{Username: strPtr("bobby")})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = e.users.UpdateMe(ctx, "ghost", models.UserPatch{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteMeCascadesOwnedOrganizations(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	b := e.board(t)

	require.NoError(t, e.users.DeleteMe(ctx, b.owner.ID))

	_, err := e.users.Me(ctx, b.owner.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = e.projects.FindOne(ctx, b.project.ID, b.member.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, e.users.DeleteMe(ctx, b.owner.ID), ErrNotFound)
}

func TestSearchPaginates(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	for i := 0; i < 23; i++ {
		e.user(t, fmt.Sprintf("dev%02d", i))
	}
	e.user(t, "zorro")

	first, err := e.users.Search(ctx, "DEV", 1)
	require.NoError(t, err)
	assert.Equal(t, 23, first.Total)
	assert.Equal(t, 2, first.PageCount)
	assert.Len(t, first.Data, SearchPageSize)

	second, err := e.users.Search(ctx, "dev", 2)
	require.NoError(t, err)
	assert.Len(t, second.Data, 3)
	assert.Equal(t, 2, second.Page)

	clamped, err := e.users.Search(ctx, "zor", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, clamped.Page)
	require.Len(t, clamped.Data, 1)
	assert.Equal(t, "zorro", clamped.Data[0].Username)

	far, err := e.users.Search(ctx, "dev", math.MaxInt)
	require.NoError(t, err)
	assert.Equal(t, maxSearchPage, far.Page)
	assert.Equal(t, 23, far.Total)
	assert.Empty(t, far.Data)
}
