package repository

import (
	"context"

	"firebase.google.com/go/v4/db"

	"fazaachat/internal/domain/entity"
	"fazaachat/internal/domain/repository"
	"fazaachat/pkg/errors"
)

type rtdbUserRepository struct {
	client *db.Client
}

func NewRTDBUserRepository(client *db.Client) repository.DirectoryRepository {
	return &rtdbUserRepository{
		client: client,
	}
}

func (r *rtdbUserRepository) GetByID(ctx context.Context, userID string) (*entity.DirectoryEntry, error) {
	var value interface{}
	if err := r.client.NewRef(usersCollection + "/" + userID).Get(ctx, &value); err != nil {
		return nil, errors.Internal("Failed to get user", err)
	}
	if value == nil {
		return nil, errors.NotFound("User", nil)
	}

	fields, ok := value.(map[string]interface{})
	if !ok {
		return nil, errors.Malformed("User", nil)
	}
	entry, ok := entity.ParseDirectoryEntry(userID, fields)
	if !ok {
		return nil, errors.Malformed("User", nil)
	}
	return entry, nil
}
