package repository

import (
	"context"

	"fazaachat/internal/domain/entity"
)

type DirectoryRepository interface {
	// GetByID returns errors.NotFound when no record exists and
	// errors.Malformed when the record cannot be decoded.
	GetByID(ctx context.Context, userID string) (*entity.DirectoryEntry, error)
}
