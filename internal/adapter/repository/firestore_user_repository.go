package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"fazaachat/internal/domain/entity"
	"fazaachat/internal/domain/repository"
	"fazaachat/pkg/errors"
)

const usersCollection = "user"

type firestoreUserRepository struct {
	client *firestore.Client
}

// NewFirestoreUserRepository reads directory entries from the user
// collection. The directory is owned by the profile service; this side
// never writes it.
func NewFirestoreUserRepository(client *firestore.Client) repository.DirectoryRepository {
	return &firestoreUserRepository{
		client: client,
	}
}

func (r *firestoreUserRepository) GetByID(ctx context.Context, userID string) (*entity.DirectoryEntry, error) {
	doc, err := r.client.Collection(usersCollection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("User", nil)
		}
		return nil, errors.Internal("Failed to get user", err)
	}

	entry, ok := entity.ParseDirectoryEntry(doc.Ref.ID, doc.Data())
	if !ok {
		return nil, errors.Malformed("User", nil)
	}
	return entry, nil
}
