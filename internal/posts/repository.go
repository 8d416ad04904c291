package posts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"lens/internal/database"
)

var (
	ErrPostNotFound   = errors.New("post not found")
	ErrInvalidPayload = errors.New("caption and image url are required")
)

const postColumns = `id, caption, image_url, image_key, created_at, updated_at`

// captionFilter matches every row when $1 is empty, otherwise a
// case-insensitive substring of caption. $1 must already be LIKE-escaped.
const captionFilter = `($1::text = '' OR caption ILIKE '%' || $1::text || '%' ESCAPE '\')`

// Repository handles all database operations for posts
type Repository struct {
	db     database.Service
	logger *slog.Logger
}

// NewRepository creates a new posts repository
func NewRepository(db database.Service, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: db, logger: logger}
}

// EscapeLike escapes the LIKE metacharacters so search text is matched
// literally.
func EscapeLike(search string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(search)
}

// Insert adds a post and returns it with the store-assigned id and timestamps
func (r *Repository) Insert(ctx context.Context, p Payload) (*Post, error) {
	if strings.TrimSpace(p.Caption) == "" || p.ImageURL == "" {
		return nil, ErrInvalidPayload
	}

	query := `
		INSERT INTO posts (caption, image_url, image_key, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING ` + postColumns

	post, err := scanPost(r.db.QueryRow(ctx, query, p.Caption, p.ImageURL, p.ImageKey))
	if err != nil {
		r.logger.Error("insert post", "error", err)
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	return post, nil
}

// GetByID retrieves a single post
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	post, err := scanPost(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		r.logger.Error("get post", "post_id", id, "error", err)
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	return post, nil
}

// Page returns the filtered posts in [offset, offset+limit), newest first,
// together with the total number of matches.
func (r *Repository) Page(ctx context.Context, search string, offset, limit int) ([]Post, int64, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 1
	}
	pattern := EscapeLike(search)

	var total int64
	countQuery := `SELECT COUNT(*) FROM posts WHERE ` + captionFilter
	if err := r.db.QueryRow(ctx, countQuery, pattern).Scan(&total); err != nil {
		r.logger.Error("count posts", "error", err)
		return nil, 0, fmt.Errorf("failed to count posts: %w", err)
	}

	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE ` + captionFilter + `
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	posts, err := r.queryRows(ctx, query, pattern, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	return posts, total, nil
}

// All returns every filtered post, newest first, without paging
func (r *Repository) All(ctx context.Context, search string) ([]Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE ` + captionFilter + `
		ORDER BY created_at DESC, id DESC`

	return r.queryRows(ctx, query, EscapeLike(search))
}

// Update replaces caption, image url and image key of an existing post
func (r *Repository) Update(ctx context.Context, id uuid.UUID, p Payload) (*Post, error) {
	if strings.TrimSpace(p.Caption) == "" || p.ImageURL == "" {
		return nil, ErrInvalidPayload
	}

	query := `
		UPDATE posts
		SET caption = $1, image_url = $2, image_key = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING ` + postColumns

	post, err := scanPost(r.db.QueryRow(ctx, query, p.Caption, p.ImageURL, p.ImageKey, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		r.logger.Error("update post", "post_id", id, "error", err)
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	return post, nil
}

// Delete removes a post by id
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("delete post", "post_id", id, "error", err)
		return fmt.Errorf("failed to delete post: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrPostNotFound
	}

	return nil
}

func (r *Repository) queryRows(ctx context.Context, query string, args ...any) ([]Post, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("query posts", "error", err)
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	posts := []Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, *post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}

	return posts, nil
}

func scanPost(row pgx.Row) (*Post, error) {
	post := &Post{}
	err := row.Scan(
		&post.ID,
		&post.Caption,
		&post.ImageURL,
		&post.ImageKey,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return post, nil
}
