package web

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"lens/internal/posts"
	"lens/internal/session"
	"lens/internal/storage"
)

type fakeRecords struct {
	mu    sync.Mutex
	posts []posts.Post
	clock time.Time
}

func (r *fakeRecords) add(caption, key string) posts.Post {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addLocked(posts.Payload{Caption: caption, ImageURL: "http://localhost:8080/public/images/" + key, ImageKey: key})
}

func (r *fakeRecords) addLocked(p posts.Payload) posts.Post {
	r.clock = r.clock.Add(time.Second)
	post := posts.Post{ID: uuid.New(), Caption: p.Caption, ImageURL: p.ImageURL, ImageKey: p.ImageKey, CreatedAt: r.clock, UpdatedAt: r.clock}
	r.posts = append([]posts.Post{post}, r.posts...)
	return post
}

func (r *fakeRecords) filtered(search string) []posts.Post {
	out := []posts.Post{}
	for _, p := range r.posts {
		if strings.Contains(strings.ToLower(p.Caption), strings.ToLower(search)) {
			out = append(out, p)
		}
	}
	return out
}

func (r *fakeRecords) Page(_ context.Context, search string, offset, limit int) ([]posts.Post, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.filtered(search)
	if offset >= len(all) {
		return []posts.Post{}, int64(len(all)), nil
	}
	return all[offset:min(offset+limit, len(all))], int64(len(all)), nil
}

func (r *fakeRecords) All(_ context.Context, search string) ([]posts.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filtered(search), nil
}

func (r *fakeRecords) Insert(_ context.Context, p posts.Payload) (*posts.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post := r.addLocked(p)
	return &post, nil
}

func (r *fakeRecords) Update(_ context.Context, id uuid.UUID, p posts.Payload) (*posts.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.posts {
		if r.posts[i].ID == id {
			r.posts[i].Caption, r.posts[i].ImageURL, r.posts[i].ImageKey = p.Caption, p.ImageURL, p.ImageKey
			post := r.posts[i]
			return &post, nil
		}
	}
	return nil, posts.ErrPostNotFound
}

func (r *fakeRecords) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.posts {
		if r.posts[i].ID == id {
			r.posts = append(r.posts[:i], r.posts[i+1:]...)
			return nil
		}
	}
	return posts.ErrPostNotFound
}

func (r *fakeRecords) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.posts)
}

type fakeBlob struct {
	data        []byte
	contentType string
}

type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string]fakeBlob
}

func (b *fakeBlobs) Upload(_ context.Context, key string, body io.Reader, _ int64, contentType string) error {
	if err := storage.ValidateContentType(contentType); err != nil {
		return err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = fakeBlob{data: data, contentType: contentType}
	return nil
}

func (b *fakeBlobs) PublicURL(key string) string {
	return "http://localhost:8080/public/images/" + key
}

func (b *fakeBlobs) Open(_ context.Context, key string) (*storage.Object, error) {
	if err := storage.ValidateKey(key); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	obj, ok := b.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return &storage.Object{
		Body:          io.NopCloser(bytes.NewReader(obj.data)),
		ContentType:   obj.contentType,
		ContentLength: int64(len(obj.data)),
	}, nil
}

func (b *fakeBlobs) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	return nil
}

func (b *fakeBlobs) has(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[key]
	return ok
}

type testEnv struct {
	handler *Handler
	router  *gin.Engine
	records *fakeRecords
	blobs   *fakeBlobs
	feed    *posts.Broker
	cookie  *http.Cookie
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env := &testEnv{
		records: &fakeRecords{clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		blobs:   &fakeBlobs{objects: make(map[string]fakeBlob)},
		feed:    posts.NewBroker(nil, logger),
	}

	ctx, cancel := context.WithCancel(context.Background())
	h, err := New(ctx, Options{
		Records:  env.records,
		Blobs:    env.blobs,
		Feed:     env.feed,
		Sessions: session.NewManager(session.NewMemoryStore(), time.Hour),
		Logger:   logger,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		h.Registry().Close()
		cancel()
	})

	env.handler = h
	env.router = gin.New()
	h.RegisterRoutes(env.router)
	return env
}

// do sends a request with the env's session cookie, keeping any new one
func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	if e.cookie != nil {
		req.AddCookie(e.cookie)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookie {
			e.cookie = c
		}
	}
	return w
}

func (e *testEnv) get(path string) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, path, nil))
}

// postJSON posts form values and asks for a JSON state answer
func (e *testEnv) postJSON(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	return e.do(req)
}

func (e *testEnv) view(t *testing.T) *view {
	t.Helper()
	require.NotNil(t, e.cookie, "no session yet")
	v, _ := e.handler.registry.get(e.cookie.Value)
	return v
}
