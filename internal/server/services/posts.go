package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Eyad010/postfeed/internal/common"
	"github.com/Eyad010/postfeed/internal/logging"
	"github.com/Eyad010/postfeed/internal/server/media"
	"github.com/Eyad010/postfeed/internal/server/models"
	"github.com/Eyad010/postfeed/internal/server/repositories/posts"
	"github.com/Eyad010/postfeed/internal/server/repositories/repomanager"
)

// LatestPostsLimit is the size of the latest posts feed.
const LatestPostsLimit = 10

type PostInput struct {
	Content  string
	Location string
	Category string
	Price    float64
}

type PostService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	media       media.Store
	log         logging.Logger
}

func NewPostService(db *sql.DB, m repomanager.RepositoryManager, store media.Store, log logging.Logger) *PostService {
	return &PostService{
		db:          db,
		repomanager: m,
		media:       store,
		log:         log.With("service", "posts"),
	}
}

var (
	errPostNotFound    = common.NewError(common.ErrorNotFound, "No post found with that ID")
	errInvalidCategory = common.NewError(common.ErrorValidation, "Invalid category")
)

func (s *PostService) posts() posts.Repository {
	return s.repomanager.Posts(s.db)
}

func (s *PostService) Latest(ctx context.Context) ([]*models.Post, error) {
	list, err := s.posts().List(ctx, LatestPostsLimit)
	if err != nil {
		return nil, fmt.Errorf("error listing posts: %w", err)
	}
	return list, nil
}

func (s *PostService) All(ctx context.Context) ([]*models.Post, error) {
	list, err := s.posts().List(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("error listing posts: %w", err)
	}
	return list, nil
}

func (s *PostService) Categories() []string {
	return models.Categories
}

func (s *PostService) ByCategory(ctx context.Context, category string) ([]*models.Post, error) {
	if !models.ValidCategory(category) {
		return nil, errInvalidCategory
	}

	list, err := s.posts().ListByCategory(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("error listing posts: %w", err)
	}
	if len(list) == 0 {
		return nil, common.NewError(common.ErrorNotFound, "No posts found for the specified category")
	}
	return list, nil
}

// Search matches query case-insensitively against post content.
func (s *PostService) Search(ctx context.Context, query string) ([]*models.Post, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, common.NewError(common.ErrorValidation, "Please provide a search query")
	}

	list, err := s.posts().Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error searching posts: %w", err)
	}
	return list, nil
}

func (s *PostService) Get(ctx context.Context, id string) (*models.Post, error) {
	post, err := s.posts().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, errPostNotFound
		}
		return nil, fmt.Errorf("error searching post: %w", err)
	}
	return post, nil
}

func validatePost(in PostInput) error {
	switch {
	case strings.TrimSpace(in.Content) == "":
		return common.NewError(common.ErrorValidation, "A post must have content")
	case strings.TrimSpace(in.Location) == "":
		return common.NewError(common.ErrorValidation, "A post must have a location")
	case !models.ValidCategory(in.Category):
		return errInvalidCategory
	case in.Price < 0:
		return common.NewError(common.ErrorValidation, "Price must not be negative")
	}
	return nil
}

// Create stores a post owned by userID with up to MaxPostImages images.
func (s *PostService) Create(ctx context.Context, userID string, in PostInput, files []media.Upload) (*models.Post, error) {
	if err := validatePost(in); err != nil {
		return nil, err
	}
	if len(files) > models.MaxPostImages {
		return nil, common.Errorf(common.ErrorValidation, "A post can have at most %d images", models.MaxPostImages)
	}
	for _, f := range files {
		if err := validateImage(f); err != nil {
			return nil, err
		}
	}

	images, err := s.upload(ctx, files)
	if err != nil {
		return nil, err
	}

	repo := s.posts()
	post, err := repo.Create(ctx, &models.Post{
		UserID:   userID,
		Content:  strings.TrimSpace(in.Content),
		Location: strings.TrimSpace(in.Location),
		Category: in.Category,
		Price:    in.Price,
		Images:   images,
	})
	if err != nil {
		removeImages(context.WithoutCancel(ctx), s.media, s.log, publicIDs(images))
		return nil, fmt.Errorf("error creating post: %w", err)
	}

	created, err := repo.GetByID(ctx, post.ID)
	if err != nil {
		return nil, fmt.Errorf("error searching post: %w", err)
	}
	return created, nil
}

// upload sends files to the media host concurrently, keeping their order.
// On failure the images already stored are removed.
func (s *PostService) upload(ctx context.Context, files []media.Upload) ([]models.Image, error) {
	images := make([]models.Image, len(files))

	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			img, err := s.media.Upload(gctx, media.FolderPosts, f)
			if err != nil {
				return err
			}
			images[i] = img
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		var stored []string
		for _, img := range images {
			if img.PublicID != "" {
				stored = append(stored, img.PublicID)
			}
		}
		removeImages(context.WithoutCancel(ctx), s.media, s.log, stored)
		return nil, fmt.Errorf("error uploading images: %w", err)
	}

	return images, nil
}

// owned loads a post and checks that userID owns it.
func (s *PostService) owned(ctx context.Context, userID, postID, action string) (*models.Post, error) {
	post, err := s.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != userID {
		return nil, common.Errorf(common.ErrorForbidden, "You do not have permission to %s this post", action)
	}
	return post, nil
}

func (s *PostService) Update(ctx context.Context, userID, postID string, upd models.PostUpdate) (*models.Post, error) {
	post, err := s.owned(ctx, userID, postID, "edit")
	if err != nil {
		return nil, err
	}

	if upd.Content != nil && strings.TrimSpace(*upd.Content) == "" {
		return nil, common.NewError(common.ErrorValidation, "A post must have content")
	}
	if upd.Location != nil && strings.TrimSpace(*upd.Location) == "" {
		return nil, common.NewError(common.ErrorValidation, "A post must have a location")
	}
	if upd.Category != nil && !models.ValidCategory(*upd.Category) {
		return nil, errInvalidCategory
	}
	if upd.Price != nil && *upd.Price < 0 {
		return nil, common.NewError(common.ErrorValidation, "Price must not be negative")
	}
	if upd.Empty() {
		return post, nil
	}

	updated, err := s.posts().Update(ctx, postID, upd)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, errPostNotFound
		}
		return nil, fmt.Errorf("error updating post: %w", err)
	}
	return updated, nil
}

// Delete removes an owned post and then its images.
func (s *PostService) Delete(ctx context.Context, userID, postID string) error {
	post, err := s.owned(ctx, userID, postID, "delete")
	if err != nil {
		return err
	}

	if err := s.posts().Delete(ctx, postID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return errPostNotFound
		}
		return fmt.Errorf("error deleting post: %w", err)
	}

	removeImages(context.WithoutCancel(ctx), s.media, s.log, publicIDs(post.Images))
	return nil
}

func publicIDs(images []models.Image) []string {
	ids := make([]string, 0, len(images))
	for _, img := range images {
		ids = append(ids, img.PublicID)
	}
	return ids
}
