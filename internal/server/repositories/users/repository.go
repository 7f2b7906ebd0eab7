package users

import (
	"context"
	"time"

	"github.com/Eyad010/postfeed/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)

	UpdateProfile(ctx context.Context, id string, name, phone *string) (*models.User, error)
	UpdatePhoto(ctx context.Context, id, url string) error

	// UpdatePassword stores a new hash and clears any pending reset.
	UpdatePassword(ctx context.Context, id, hash string, changedAt time.Time) error

	SetResetCode(ctx context.Context, id, codeHash string, expiresAt time.Time) error
	ClearResetCode(ctx context.Context, id string) error
	// MarkResetVerified flags the reset of the user matching email whose
	// code hash matches and has not expired at now. It returns the user id.
	MarkResetVerified(ctx context.Context, email, codeHash string, now time.Time) (string, error)

	Delete(ctx context.Context, id string) error
}
