package services

import (
	"context"
	"regexp"
	"testing"

	"confessly/internal/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCreateUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.users.CreateUser(ctx, CreateUserInput{Name: " alice ", Email: "alice@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Name)
	assert.True(t, user.NotifSeen)
	assert.Nil(t, user.ActiveChat)
	assert.False(t, user.ID.IsZero())
}

func TestCreateUserNameTaken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "alice")

	_, err := env.users.CreateUser(ctx, CreateUserInput{Name: "alice"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))

	_, err = env.users.CreateUser(ctx, CreateUserInput{Name: "   "})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestCreateUniqueTag(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.seedUser(t, "alice")

	tagged, err := env.users.CreateUniqueTag(ctx, id, "alice")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^alice\d{4}$`), tagged)

	user, err := env.users.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, tagged, user.Name)

	_, err = env.users.CreateUniqueTag(ctx, primitive.NewObjectID(), "bob")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestEditUserPartialUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.seedUser(t, "alice")

	bio := "hello there"
	updated, err := env.users.EditUser(ctx, id, EditUserInput{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "hello there", updated.Bio)
	assert.Equal(t, "alice", updated.Name, "untouched fields must survive")

	_, err = env.users.EditUser(ctx, id, EditUserInput{})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	_, err = env.users.EditUser(ctx, primitive.NewObjectID(), EditUserInput{Bio: &bio})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestFindByName(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.seedUser(t, "alice")

	user, err := env.users.FindByName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)

	_, err = env.users.FindByName(ctx, "nobody")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestSearchByNamePrefix(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, name := range []string{"Alice", "alina", "albert", "alfred", "alma", "alva", "bob"} {
		env.seedUser(t, name)
	}

	results, err := env.users.SearchByNamePrefix(ctx, "al")
	require.NoError(t, err)
	assert.Len(t, results, 5, "search is capped at five results")
	for _, user := range results {
		assert.NotEqual(t, "bob", user.Name)
	}

	// Case-insensitive on both sides.
	results, err = env.users.SearchByNamePrefix(ctx, "ALI")
	require.NoError(t, err)
	names := make([]string, 0, len(results))
	for _, user := range results {
		names = append(names, user.Name)
	}
	assert.ElementsMatch(t, []string{"Alice", "alina"}, names)

	_, err = env.users.SearchByNamePrefix(ctx, "  ")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}
