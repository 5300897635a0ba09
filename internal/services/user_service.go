package services

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"confessly/internal/apperrors"
	"confessly/internal/models"
	"confessly/internal/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxSearchResults = 5

// UserService manages profiles. Identity itself (sign-in, sessions) is
// an external concern; this service only owns the stored profile and
// the two flags the lifecycle engine touches.
type UserService struct {
	users store.Collection
}

func NewUserService(st store.Store) *UserService {
	return &UserService{users: st.Collection(store.CollectionUsers)}
}

// CreateUserInput is the validated boundary payload for CreateUser.
type CreateUserInput struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email"`
	Image string `json:"image"`
}

// EditUserInput carries the editable profile fields. Nil pointers
// leave the stored value untouched.
type EditUserInput struct {
	Name             *string `json:"name"`
	Image            *string `json:"image"`
	Cover            *string `json:"cover"`
	Bio              *string `json:"bio"`
	Status           *string `json:"status"`
	RequestsDisabled *bool   `json:"requests_disabled"`
}

func (s *UserService) CreateUser(ctx context.Context, input CreateUserInput) (*models.User, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.Validation("name must not be empty")
	}

	var existing models.User
	err := s.users.FindOne(ctx, bson.M{"name": name}, &existing)
	if err == nil {
		return nil, apperrors.Conflict("name %q is already taken", name)
	}
	if err != store.ErrNoDocuments {
		return nil, fmt.Errorf("failed to check name availability: %w", err)
	}

	user := models.User{
		Name:      name,
		Email:     strings.TrimSpace(input.Email),
		Image:     input.Image,
		NotifSeen: true,
		CreatedAt: time.Now().UTC(),
	}

	id, err := s.users.InsertOne(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	user.ID = id

	return &user, nil
}

// CreateUniqueTag appends a random four-digit suffix to a display name
// so duplicate names stay distinguishable.
func (s *UserService) CreateUniqueTag(ctx context.Context, userID primitive.ObjectID, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperrors.Validation("name must not be empty")
	}

	tagged := fmt.Sprintf("%s%d", name, 1000+rand.Intn(9000))

	matched, err := s.users.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$set": bson.M{"name": tagged},
	})
	if err != nil {
		return "", fmt.Errorf("failed to update user name: %w", err)
	}
	if matched == 0 {
		return "", apperrors.NotFound("user %s not found", userID.Hex())
	}

	return tagged, nil
}

func (s *UserService) EditUser(ctx context.Context, userID primitive.ObjectID, input EditUserInput) (*models.User, error) {
	fields := bson.M{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.Validation("name must not be empty")
		}
		fields["name"] = name
	}
	if input.Image != nil {
		fields["image"] = *input.Image
	}
	if input.Cover != nil {
		fields["cover"] = *input.Cover
	}
	if input.Bio != nil {
		fields["bio"] = *input.Bio
	}
	if input.Status != nil {
		fields["status"] = *input.Status
	}
	if input.RequestsDisabled != nil {
		fields["requests_disabled"] = *input.RequestsDisabled
	}
	if len(fields) == 0 {
		return nil, apperrors.Validation("no fields to update")
	}

	matched, err := s.users.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": fields})
	if err != nil {
		return nil, fmt.Errorf("failed to edit user: %w", err)
	}
	if matched == 0 {
		return nil, apperrors.NotFound("user %s not found", userID.Hex())
	}

	return s.FindByID(ctx, userID)
}

func (s *UserService) FindByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := s.users.FindOne(ctx, bson.M{"_id": userID}, &user)
	if err == store.ErrNoDocuments {
		return nil, apperrors.NotFound("user %s not found", userID.Hex())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

func (s *UserService) FindByName(ctx context.Context, name string) (*models.User, error) {
	var user models.User
	err := s.users.FindOne(ctx, bson.M{"name": name}, &user)
	if err == store.ErrNoDocuments {
		return nil, apperrors.NotFound("user %q not found", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// SearchByNamePrefix returns up to five users whose name starts with
// the key, case-insensitively, ordered by name.
func (s *UserService) SearchByNamePrefix(ctx context.Context, key string) ([]models.User, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, apperrors.Validation("search key must not be empty")
	}

	filter := bson.M{
		"name": primitive.Regex{Pattern: "^" + regexp.QuoteMeta(key), Options: "i"},
	}

	var users []models.User
	err := s.users.Find(ctx, filter, store.FindOptions{
		Sort:  []store.SortField{{Key: "name"}},
		Limit: maxSearchResults,
	}, &users)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}

	return users, nil
}
