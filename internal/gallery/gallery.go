// Package gallery implements the gallery view controller: the per-viewer
// state behind the photo grid, pager, admin form and lightbox, and its
// coordination with the record store, the blob store and the change feed.
//
// The controller is safe for concurrent use. Store round trips run outside
// the controller lock, so the surface stays responsive while a save or a
// fetch is pending.
package gallery

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"lens/internal/posts"
	"lens/internal/storage"
)

// DefaultPageSize is used until the surface reports a viewport width
const DefaultPageSize = 12

var (
	ErrCaptionRequired = errors.New("caption is required")
	ErrImageRequired   = errors.New("image is required for a new post")
	ErrSaveInProgress  = errors.New("save already in progress")
	ErrNotInSequence   = errors.New("post is not in the current sequence")
	ErrInvalidPageSize = errors.New("page size must be positive")
)

// Records is the record collection of the store
type Records interface {
	Page(ctx context.Context, search string, offset, limit int) ([]posts.Post, int64, error)
	All(ctx context.Context, search string) ([]posts.Post, error)
	Insert(ctx context.Context, p posts.Payload) (*posts.Post, error)
	Update(ctx context.Context, id uuid.UUID, p posts.Payload) (*posts.Post, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Blobs is the blob namespace of the store
type Blobs interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PublicURL(key string) string
	Delete(ctx context.Context, key string) error
}

// Feed is the change feed of the record collection
type Feed interface {
	Subscribe(ctx context.Context) (posts.Subscription, error)
}

// Notifier is the blocking-notification channel every operator-facing
// failure goes through.
type Notifier interface {
	Alert(message string)
}

// Confirmer asks the operator to confirm a destructive action
type Confirmer interface {
	Confirm(prompt string) bool
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(message string)

func (f NotifierFunc) Alert(message string) { f(message) }

// ConfirmFunc adapts a function to Confirmer
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Options wires a Controller to its collaborators
type Options struct {
	Records   Records
	Blobs     Blobs
	Feed      Feed
	Notifier  Notifier
	Confirmer Confirmer
	Logger    *slog.Logger

	// PageSize defaults to DefaultPageSize
	PageSize int
	// BlobMarker precedes the storage key in public image URLs
	BlobMarker string
	// Now defaults to time.Now; used for upload keys
	Now func() time.Time
}

// Controller owns the state of one gallery view
type Controller struct {
	records   Records
	blobs     Blobs
	feed      Feed
	notifier  Notifier
	confirmer Confirmer
	logger    *slog.Logger
	marker    string
	now       func() time.Time

	mu sync.Mutex

	search    string
	page      int
	pageSize  int
	pageSlice []posts.Post
	total     int64
	sequence  []posts.Post

	// refresh generations: issued counts started fetches, applied is the
	// generation currently shown
	issued  uint64
	applied uint64

	form     formState
	lightbox Lightbox

	mounted bool
	cancel  context.CancelFunc
	done    chan struct{}

	version  uint64
	watchers map[chan struct{}]struct{}
}

// New creates a controller. Records, Blobs and Feed are required.
func New(opts Options) *Controller {
	c := &Controller{
		records:   opts.Records,
		blobs:     opts.Blobs,
		feed:      opts.Feed,
		notifier:  opts.Notifier,
		confirmer: opts.Confirmer,
		logger:    opts.Logger,
		marker:    opts.BlobMarker,
		now:       opts.Now,
		pageSize:  opts.PageSize,
		pageSlice: []posts.Post{},
		sequence:  []posts.Post{},
		watchers:  make(map[chan struct{}]struct{}),
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.notifier == nil {
		c.notifier = NotifierFunc(func(msg string) { c.logger.Warn("gallery alert", "message", msg) })
	}
	if c.confirmer == nil {
		c.confirmer = ConfirmFunc(func(string) bool { return false })
	}
	if c.marker == "" {
		c.marker = storage.PublicPrefix("images")
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.pageSize <= 0 {
		c.pageSize = DefaultPageSize
	}
	return c
}

// Watch returns a channel signalled after every state change, and a func
// that stops watching. Signals coalesce.
func (c *Controller) Watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	c.mu.Lock()
	c.watchers[ch] = struct{}{}
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.watchers, ch)
			c.mu.Unlock()
		})
	}
}

// changed bumps the version and wakes watchers. Callers hold c.mu.
func (c *Controller) changed() {
	c.version++
	for ch := range c.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (c *Controller) alert(message string) {
	c.notifier.Alert(message)
}

// Post returns the cached post with id from the page slice or the sequence
func (c *Controller) Post(id uuid.UUID) (posts.Post, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookup(id)
}

func (c *Controller) lookup(id uuid.UUID) (posts.Post, bool) {
	for _, p := range c.pageSlice {
		if p.ID == id {
			return p, true
		}
	}
	if i := indexOf(c.sequence, id); i >= 0 {
		return c.sequence[i], true
	}
	return posts.Post{}, false
}

func indexOf(list []posts.Post, id uuid.UUID) int {
	for i, p := range list {
		if p.ID == id {
			return i
		}
	}
	return -1
}
