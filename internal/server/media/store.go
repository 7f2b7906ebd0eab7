// Package media stores user uploaded images on an S3 compatible host.
package media

import (
	"context"
	"io"

	"github.com/Eyad010/postfeed/internal/server/models"
)

// Folders used for object keys.
const (
	FolderUsers = "users"
	FolderPosts = "posts"
)

// MaxImageSize is the largest accepted image in bytes.
const MaxImageSize = 5 << 20

// Upload is a single file received from a client.
type Upload struct {
	Body        io.ReadSeeker
	Size        int64
	ContentType string
}

// Store uploads and removes images. Upload returns the stored image with
// its public URL; Remove deletes by Image.PublicID.
type Store interface {
	Upload(ctx context.Context, folder string, file Upload) (models.Image, error)
	Remove(ctx context.Context, publicID string) error
	PublicID(url string) string
}
