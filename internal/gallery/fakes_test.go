package gallery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"lens/internal/posts"
)

// memRecords is an in-memory record collection ordered newest first
type memRecords struct {
	mu    sync.Mutex
	posts []posts.Post
	clock time.Time

	pageErr   error
	allErr    error
	insertErr error
	updateErr error
	deleteErr error

	// pageHook runs before Page returns and may block
	pageHook func(search string, offset, limit int)

	inserted []posts.Payload
	updated  map[uuid.UUID]posts.Payload
	deleted  []uuid.UUID
}

func newMemRecords(captions ...string) *memRecords {
	r := &memRecords{
		clock:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		updated: make(map[uuid.UUID]posts.Payload),
	}
	// the last caption is the newest
	for _, c := range captions {
		r.add(posts.Payload{Caption: c, ImageURL: "http://localhost:8080/public/images/" + c + ".jpg", ImageKey: c + ".jpg"})
	}
	return r
}

func (r *memRecords) add(p posts.Payload) posts.Post {
	r.clock = r.clock.Add(time.Minute)
	post := posts.Post{
		ID:        uuid.New(),
		Caption:   p.Caption,
		ImageURL:  p.ImageURL,
		ImageKey:  p.ImageKey,
		CreatedAt: r.clock,
		UpdatedAt: r.clock,
	}
	r.posts = append([]posts.Post{post}, r.posts...)
	return post
}

func (r *memRecords) filtered(search string) []posts.Post {
	out := []posts.Post{}
	for _, p := range r.posts {
		if search == "" || strings.Contains(strings.ToLower(p.Caption), strings.ToLower(search)) {
			out = append(out, p)
		}
	}
	return out
}

func (r *memRecords) Page(_ context.Context, search string, offset, limit int) ([]posts.Post, int64, error) {
	r.mu.Lock()
	err := r.pageErr
	all := r.filtered(search)
	hook := r.pageHook
	r.mu.Unlock()

	if hook != nil {
		hook(search, offset, limit)
	}
	if err != nil {
		return nil, 0, err
	}
	if offset >= len(all) {
		return []posts.Post{}, int64(len(all)), nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], int64(len(all)), nil
}

func (r *memRecords) All(_ context.Context, search string) ([]posts.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.allErr != nil {
		return nil, r.allErr
	}
	return r.filtered(search), nil
}

func (r *memRecords) Insert(_ context.Context, p posts.Payload) (*posts.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return nil, r.insertErr
	}
	r.inserted = append(r.inserted, p)
	post := r.add(p)
	return &post, nil
}

func (r *memRecords) Update(_ context.Context, id uuid.UUID, p posts.Payload) (*posts.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	for i := range r.posts {
		if r.posts[i].ID == id {
			r.posts[i].Caption = p.Caption
			r.posts[i].ImageURL = p.ImageURL
			r.posts[i].ImageKey = p.ImageKey
			r.updated[id] = p
			post := r.posts[i]
			return &post, nil
		}
	}
	return nil, posts.ErrPostNotFound
}

func (r *memRecords) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	for i := range r.posts {
		if r.posts[i].ID == id {
			r.posts = append(r.posts[:i], r.posts[i+1:]...)
			r.deleted = append(r.deleted, id)
			return nil
		}
	}
	return posts.ErrPostNotFound
}

func (r *memRecords) byCaption(caption string) posts.Post {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.posts {
		if p.Caption == caption {
			return p
		}
	}
	panic(fmt.Sprintf("no post %q", caption))
}

type memBlobs struct {
	mu        sync.Mutex
	objects   map[string][]byte
	deleted   []string
	uploadErr error
	deleteErr error
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: make(map[string][]byte)}
}

func (b *memBlobs) Upload(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.uploadErr != nil {
		return b.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	b.objects[key] = data
	return nil
}

func (b *memBlobs) PublicURL(key string) string {
	return "http://localhost:8080/public/images/" + key
}

func (b *memBlobs) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, key)
	if b.deleteErr != nil {
		return b.deleteErr
	}
	delete(b.objects, key)
	return nil
}

func (b *memBlobs) keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.objects))
	for k := range b.objects {
		out = append(out, k)
	}
	return out
}

// alerts records every alert
type alerts struct {
	mu   sync.Mutex
	msgs []string
}

func (a *alerts) Alert(msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.msgs = append(a.msgs, msg)
}

func (a *alerts) all() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.msgs...)
}

type fixture struct {
	records *memRecords
	blobs   *memBlobs
	feed    *posts.Broker
	alerts  *alerts
	confirm bool
	prompts []string
	ctrl    *Controller
}

func newFixture(t *testing.T, records *memRecords) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		records: records,
		blobs:   newMemBlobs(),
		feed:    posts.NewBroker(nil, logger),
		alerts:  &alerts{},
		confirm: true,
	}
	f.ctrl = New(Options{
		Records:  f.records,
		Blobs:    f.blobs,
		Feed:     f.feed,
		Notifier: f.alerts,
		Confirmer: ConfirmFunc(func(prompt string) bool {
			f.prompts = append(f.prompts, prompt)
			return f.confirm
		}),
		Logger: logger,
		Now:    func() time.Time { return time.Unix(1700000000, 42) },
	})
	t.Cleanup(f.ctrl.Unmount)
	return f
}

func fileUpload(name, content string) *Upload {
	return &Upload{
		Name:        name,
		ContentType: "image/jpeg",
		Size:        int64(len(content)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewBufferString(content)), nil
		},
	}
}

var errStore = errors.New("store unavailable")
