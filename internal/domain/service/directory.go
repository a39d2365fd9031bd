package service

import (
	"context"

	"fazaachat/internal/domain/entity"
	"fazaachat/internal/domain/repository"
	"fazaachat/pkg/errors"
	"fazaachat/pkg/logger"
)

// DirectoryLookup resolves user ids to directory entries. Lookups are never
// cached and never retried.
type DirectoryLookup struct {
	repo repository.DirectoryRepository
}

func NewDirectoryLookup(repo repository.DirectoryRepository) *DirectoryLookup {
	return &DirectoryLookup{repo: repo}
}

// Fetch returns nil when the record is absent, malformed or unreachable.
func (d *DirectoryLookup) Fetch(ctx context.Context, userID string) *entity.DirectoryEntry {
	if userID == "" {
		return nil
	}
	entry, err := d.repo.GetByID(ctx, userID)
	switch {
	case err == nil:
		return entry
	case errors.Is(err, "NOT_FOUND"):
		logger.Debug("DirectoryLookup: no record for user %s", userID)
	case errors.Is(err, "MALFORMED_RECORD"):
		logger.Debug("DirectoryLookup: malformed record for user %s", userID)
	default:
		logger.Warn("DirectoryLookup: failed to fetch user %s: %v", userID, err)
	}
	return nil
}
