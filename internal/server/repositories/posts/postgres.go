package posts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Eyad010/postfeed/internal/common"
	"github.com/Eyad010/postfeed/internal/dbx"
	"github.com/Eyad010/postfeed/internal/server/models"
)

const selectPosts = `SELECT p.id, p.user_id, p.content, p.location, p.category, p.price, p.images, p.created_at,
		 u.id, u.name, u.photo, u.phone
		 FROM posts p
		 JOIN users u ON u.id = p.user_id`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	var (
		p      models.Post
		a      models.Author
		images []byte
	)

	err := row.Scan(&p.ID, &p.UserID, &p.Content, &p.Location, &p.Category, &p.Price, &images, &p.CreatedAt,
		&a.ID, &a.Name, &a.Photo, &a.Phone)
	if err != nil {
		return nil, err
	}

	if p.Images, err = decodeImages(images); err != nil {
		return nil, err
	}
	p.User = &a

	return &p, nil
}

func decodeImages(b []byte) ([]models.Image, error) {
	images := []models.Image{}
	if len(b) == 0 {
		return images, nil
	}
	if err := json.Unmarshal(b, &images); err != nil {
		return nil, fmt.Errorf("decode images: %w", err)
	}
	return images, nil
}

func encodeImages(images []models.Image) ([]byte, error) {
	if images == nil {
		images = []models.Image{}
	}
	return json.Marshal(images)
}

func (r *PostgresRepository) Create(ctx context.Context, post *models.Post) (*models.Post, error) {
	images, err := encodeImages(post.Images)
	if err != nil {
		return nil, err
	}

	query :=
		`INSERT INTO posts (user_id, content, location, category, price, images)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at
		 `

	err = r.db.QueryRowContext(ctx, query,
		post.UserID, post.Content, post.Location, post.Category, post.Price, images).Scan(&post.ID, &post.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return post, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	query := selectPosts + `
		 WHERE p.id = $1
		 `

	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || dbx.IsInvalidInput(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return post, nil
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]*models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []*models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) List(ctx context.Context, limit int) ([]*models.Post, error) {
	query := selectPosts + `
		 ORDER BY p.created_at DESC
		 `
	if limit > 0 {
		return r.query(ctx, query+`LIMIT $1`, limit)
	}
	return r.query(ctx, query)
}

func (r *PostgresRepository) ListByCategory(ctx context.Context, category string) ([]*models.Post, error) {
	query := selectPosts + `
		 WHERE p.category = $1
		 ORDER BY p.created_at DESC
		 `
	return r.query(ctx, query, category)
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Post, error) {
	query := selectPosts + `
		 WHERE p.user_id = $1
		 ORDER BY p.created_at DESC
		 `
	return r.query(ctx, query, userID)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *PostgresRepository) Search(ctx context.Context, q string) ([]*models.Post, error) {
	query := selectPosts + `
		 WHERE p.content ILIKE $1
		 ORDER BY p.created_at DESC
		 `
	return r.query(ctx, query, "%"+likeEscaper.Replace(q)+"%")
}

func (r *PostgresRepository) Update(ctx context.Context, id string, upd models.PostUpdate) (*models.Post, error) {
	query :=
		`UPDATE posts
		 SET content = COALESCE($2, content), location = COALESCE($3, location),
		     category = COALESCE($4, category), price = COALESCE($5, price)
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, id, upd.Content, upd.Location, upd.Category, upd.Price)
	if err != nil {
		if dbx.IsInvalidInput(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return nil, common.ErrorNotFound
	}

	return r.GetByID(ctx, id)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		if dbx.IsInvalidInput(err) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID string) ([]models.Image, error) {
	rows, err := r.db.QueryContext(ctx, `DELETE FROM posts WHERE user_id = $1 RETURNING images`, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Image
	for rows.Next() {
		var b []byte
		if err := rows.Scan(&b); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		images, err := decodeImages(b)
		if err != nil {
			return nil, err
		}
		result = append(result, images...)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}
