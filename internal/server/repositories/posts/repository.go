package posts

import (
	"context"

	"github.com/Eyad010/postfeed/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, post *models.Post) (*models.Post, error)
	GetByID(ctx context.Context, id string) (*models.Post, error)

	// List returns the newest posts first; limit <= 0 means no limit.
	List(ctx context.Context, limit int) ([]*models.Post, error)
	ListByCategory(ctx context.Context, category string) ([]*models.Post, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Post, error)
	Search(ctx context.Context, query string) ([]*models.Post, error)

	Update(ctx context.Context, id string, upd models.PostUpdate) (*models.Post, error)
	Delete(ctx context.Context, id string) error
	// DeleteByUser removes every post of the user and returns their images.
	DeleteByUser(ctx context.Context, userID string) ([]models.Image, error)
}
