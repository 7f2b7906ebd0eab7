package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Eyad010/postfeed/internal/common"
	"github.com/Eyad010/postfeed/internal/dbx"
	"github.com/Eyad010/postfeed/internal/logging"
	"github.com/Eyad010/postfeed/internal/server/media"
	"github.com/Eyad010/postfeed/internal/server/models"
	"github.com/Eyad010/postfeed/internal/server/repositories/repomanager"
)

// ProfileUpdate is the body of an update-me request. Only Name and Phone
// are applied; the other fields are present so they can be rejected.
type ProfileUpdate struct {
	Name            *string `json:"name"`
	Phone           *string `json:"phone"`
	Email           *string `json:"email"`
	Password        *string `json:"password"`
	PasswordConfirm *string `json:"passwordConfirm"`
}

type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	media       media.Store
	log         logging.Logger
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, store media.Store, log logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		media:       store,
		log:         log.With("service", "users"),
	}
}

var errUserNotFound = common.NewError(common.ErrorNotFound, "No user found with that ID.")

func (s *UserService) List(ctx context.Context) ([]*models.User, error) {
	list, err := s.repomanager.Users(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}
	return list, nil
}

// Get returns the user with their posts.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, errUserNotFound
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	posts, err := s.repomanager.Posts(s.db).ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing posts: %w", err)
	}
	for _, p := range posts {
		p.User = nil
	}
	user.Posts = posts

	return user, nil
}

func (s *UserService) UpdateMe(ctx context.Context, id string, upd ProfileUpdate) (*models.User, error) {
	if nonEmpty(upd.Password) || nonEmpty(upd.PasswordConfirm) {
		return nil, common.NewError(common.ErrorValidation,
			"This route is not for password updates. Please use /updateMyPassword.")
	}
	if nonEmpty(upd.Email) {
		return nil, common.NewError(common.ErrorValidation, "Email cannot be changed.")
	}

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, common.NewError(common.ErrorValidation, "Please tell us your name!")
		}
		upd.Name = &name
	}
	if upd.Phone != nil {
		phone := strings.TrimSpace(*upd.Phone)
		upd.Phone = &phone
	}

	user, err := s.repomanager.Users(s.db).UpdateProfile(ctx, id, upd.Name, upd.Phone)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, errUserNotFound
		}
		return nil, fmt.Errorf("error updating user: %w", err)
	}

	return user, nil
}

// UpdatePhoto uploads a new profile photo and removes the previous one.
func (s *UserService) UpdatePhoto(ctx context.Context, user *models.User, file media.Upload) (*models.User, error) {
	if err := validateImage(file); err != nil {
		return nil, err
	}

	img, err := s.media.Upload(ctx, media.FolderUsers, file)
	if err != nil {
		return nil, fmt.Errorf("error uploading photo: %w", err)
	}

	repo := s.repomanager.Users(s.db)
	if err := repo.UpdatePhoto(ctx, user.ID, img.URL); err != nil {
		removeImages(ctx, s.media, s.log, []string{img.PublicID})
		return nil, fmt.Errorf("error updating photo: %w", err)
	}

	if old := s.media.PublicID(user.Photo); old != "" {
		removeImages(ctx, s.media, s.log, []string{old})
	}

	updated, err := repo.GetByID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("error searching user: %w", err)
	}
	return updated, nil
}

// DeleteMe deletes the user and their posts in one transaction, then removes
// their images from the media host.
func (s *UserService) DeleteMe(ctx context.Context, user *models.User) error {
	var images []models.Image

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		if images, err = s.repomanager.Posts(tx).DeleteByUser(ctx, user.ID); err != nil {
			return err
		}
		return s.repomanager.Users(tx).Delete(ctx, user.ID)
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return errUserNotFound
		}
		return fmt.Errorf("error deleting user: %w", err)
	}

	ids := make([]string, 0, len(images)+1)
	for _, img := range images {
		ids = append(ids, img.PublicID)
	}
	if photo := s.media.PublicID(user.Photo); photo != "" {
		ids = append(ids, photo)
	}
	removeImages(context.WithoutCancel(ctx), s.media, s.log, ids)

	s.log.Info(ctx, "user deleted", "user_id", user.ID, "images", len(ids))
	return nil
}

// removeImages deletes media objects; failures are logged only.
func removeImages(ctx context.Context, store media.Store, log logging.Logger, ids []string) {
	for _, id := range ids {
		if err := store.Remove(ctx, id); err != nil {
			log.Warn(ctx, "image removal failed", "public_id", id, "error", err)
		}
	}
}

func nonEmpty(s *string) bool {
	return s != nil && *s != ""
}

func validateImage(file media.Upload) error {
	if !strings.HasPrefix(file.ContentType, "image/") {
		return common.NewError(common.ErrorValidation, "Not an image! Please upload images only.")
	}
	return nil
}
