package posts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	postTTL = 5 * time.Minute
	listTTL = 2 * time.Minute

	listKeyPrefix = "posts:list:"
)

type recordStore interface {
	Insert(ctx context.Context, p Payload) (*Post, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Post, error)
	Page(ctx context.Context, search string, offset, limit int) ([]Post, int64, error)
	All(ctx context.Context, search string) ([]Post, error)
	Update(ctx context.Context, id uuid.UUID, p Payload) (*Post, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service is the record collection seen by the gallery: the repository with
// a Redis read-through cache in front of it. A nil cache disables caching.
type Service struct {
	repo   recordStore
	cache  *redis.Client
	logger *slog.Logger
}

// NewRedisClient connects to Redis and returns nil when it is unreachable,
// so the service keeps working uncached.
func NewRedisClient(ctx context.Context, addr, password string, db int, logger *slog.Logger) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, caching disabled", "addr", addr, "error", err)
		_ = rdb.Close()
		return nil
	}

	logger.Info("redis cache connected", "addr", addr)
	return rdb
}

// NewService creates a new posts service
func NewService(repo recordStore, cache *redis.Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger}
}

// Insert creates a post and drops the cached listings
func (s *Service) Insert(ctx context.Context, p Payload) (*Post, error) {
	post, err := s.repo.Insert(ctx, p)
	if err != nil {
		return nil, err
	}

	s.invalidateLists(ctx)
	return post, nil
}

// Get retrieves one post, cached for a few minutes
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Post, error) {
	key := postKey(id)

	var post Post
	if s.cacheGet(ctx, key, &post) {
		return &post, nil
	}

	found, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, key, found, postTTL)
	return found, nil
}

// Page returns the filtered window [offset, offset+limit) and the match count
func (s *Service) Page(ctx context.Context, search string, offset, limit int) ([]Post, int64, error) {
	key := fmt.Sprintf("%spage:%d:%d:%s", listKeyPrefix, offset, limit, url.QueryEscape(search))

	var cached struct {
		Posts []Post `json:"posts"`
		Total int64  `json:"total"`
	}
	if s.cacheGet(ctx, key, &cached) {
		return cached.Posts, cached.Total, nil
	}

	posts, total, err := s.repo.Page(ctx, search, offset, limit)
	if err != nil {
		return nil, 0, err
	}

	cached.Posts, cached.Total = posts, total
	s.cacheSet(ctx, key, cached, listTTL)
	return posts, total, nil
}

// All returns the full filtered sequence
func (s *Service) All(ctx context.Context, search string) ([]Post, error) {
	key := listKeyPrefix + "all:" + url.QueryEscape(search)

	var posts []Post
	if s.cacheGet(ctx, key, &posts) {
		return posts, nil
	}

	posts, err := s.repo.All(ctx, search)
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, key, posts, listTTL)
	return posts, nil
}

// GetPage is Page expressed in page numbers, for the JSON API. page is zero
// based.
func (s *Service) GetPage(ctx context.Context, search string, page, pageSize int) (*PageResult, error) {
	if page < 0 {
		page = 0
	}
	if pageSize < 1 {
		pageSize = 12
	}

	posts, total, err := s.Page(ctx, search, page*pageSize, pageSize)
	if err != nil {
		return nil, err
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize != 0 {
		totalPages++
	}

	return &PageResult{
		Posts:      posts,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: totalPages,
	}, nil
}

// Update replaces a post's payload
func (s *Service) Update(ctx context.Context, id uuid.UUID, p Payload) (*Post, error) {
	post, err := s.repo.Update(ctx, id, p)
	if err != nil {
		return nil, err
	}

	s.invalidatePost(ctx, id)
	s.invalidateLists(ctx)
	return post, nil
}

// Delete removes a post
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidatePost(ctx, id)
	s.invalidateLists(ctx)
	return nil
}

// Invalidate drops cached entries touched by a change event. It is hooked to
// the change feed so writes from other instances are seen.
func (s *Service) Invalidate(ctx context.Context, ev ChangeEvent) {
	if ev.ID != uuid.Nil {
		s.invalidatePost(ctx, ev.ID)
	}
	s.invalidateLists(ctx)
}

// CacheHealth reports the state of the Redis cache
func (s *Service) CacheHealth(ctx context.Context) map[string]string {
	if s.cache == nil {
		return map[string]string{"status": "disabled"}
	}
	if err := s.cache.Ping(ctx).Err(); err != nil {
		return map[string]string{"status": "down", "error": err.Error()}
	}
	return map[string]string{"status": "up"}
}

func postKey(id uuid.UUID) string {
	return "post:" + id.String()
}

func (s *Service) cacheGet(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	raw, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.logger.Warn("discarding corrupt cache entry", "key", key, "error", err)
		return false
	}
	s.logger.Debug("cache hit", "key", key)
	return true
}

func (s *Service) cacheSet(ctx context.Context, key string, value any, ttl time.Duration) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, ttl).Err(); err != nil {
		s.logger.Warn("cache write failed", "key", key, "error", err)
	}
}

func (s *Service) invalidatePost(ctx context.Context, id uuid.UUID) {
	if s.cache != nil {
		s.cache.Del(ctx, postKey(id))
	}
}

func (s *Service) invalidateLists(ctx context.Context) {
	if s.cache == nil {
		return
	}
	iter := s.cache.Scan(ctx, 0, listKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		s.cache.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		s.logger.Warn("scanning cache keys failed", "error", err)
	}
}
