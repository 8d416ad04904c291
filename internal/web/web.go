// Package web is the presentation surface of the gallery: server-rendered
// pages over a per-session gallery controller, form and lightbox actions,
// a live websocket and the public image route.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"lens/internal/gallery"
	"lens/internal/session"
	"lens/internal/storage"
)

const sessionCookie = "session_id"

// BlobStore is the blob namespace plus read access for the image route
type BlobStore interface {
	gallery.Blobs
	Open(ctx context.Context, key string) (*storage.Object, error)
}

// Options wires the surface to the store and sessions
type Options struct {
	Records  gallery.Records
	Blobs    BlobStore
	Feed     gallery.Feed
	Sessions session.Manager
	Logger   *slog.Logger

	// BlobMarker is the public image path prefix, e.g. /public/images/
	BlobMarker     string
	SessionTTL     time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
	SecureCookies  bool
}

// Handler serves the gallery pages
type Handler struct {
	blobs    BlobStore
	sessions session.Manager
	logger   *slog.Logger
	marker   string
	ttl      time.Duration
	origins  []string
	secure   bool
	registry *Registry
	renderer *renderer
}

// New builds the surface. ctx bounds the live subscriptions of every
// session controller.
func New(ctx context.Context, opts Options) (*Handler, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.BlobMarker == "" {
		opts.BlobMarker = storage.PublicPrefix("images")
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}

	r, err := newRenderer()
	if err != nil {
		return nil, err
	}

	factory := func(n gallery.Notifier, c gallery.Confirmer) *gallery.Controller {
		return gallery.New(gallery.Options{
			Records:    opts.Records,
			Blobs:      opts.Blobs,
			Feed:       opts.Feed,
			Notifier:   n,
			Confirmer:  c,
			Logger:     logger,
			BlobMarker: opts.BlobMarker,
		})
	}

	return &Handler{
		blobs:    opts.Blobs,
		sessions: opts.Sessions,
		logger:   logger,
		marker:   opts.BlobMarker,
		ttl:      opts.SessionTTL,
		origins:  opts.AllowedOrigins,
		secure:   opts.SecureCookies,
		registry: NewRegistry(ctx, factory, opts.IdleTimeout, logger),
		renderer: r,
	}, nil
}

// Registry exposes the session controllers for background sweeping
func (h *Handler) Registry() *Registry {
	return h.registry
}

// RegisterRoutes mounts pages, actions, the live socket and the image route
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.SetHTMLTemplate(h.renderer.tmpl)

	r.GET(h.marker+"*key", h.serveBlob)
	r.HEAD(h.marker+"*key", h.serveBlob)

	pages := r.Group("/")
	pages.Use(h.sessionMiddleware())
	{
		pages.GET("/", h.viewerPage)
		pages.GET("/live", h.live)

		admin := pages.Group("/admin")
		{
			admin.GET("", h.adminPage)
			admin.GET("/posts/new", h.newPost)
			admin.GET("/posts/:id/edit", h.editPost)
			admin.POST("/posts", h.savePost)
			admin.POST("/posts/:id/delete", h.deletePost)
			admin.POST("/form/reset", h.resetForm)
			admin.POST("/form/cancel", h.cancelForm)
		}

		lb := pages.Group("/lightbox")
		{
			lb.POST("/open/:id", h.openLightbox)
			lb.POST("/next", h.nextImage)
			lb.POST("/prev", h.previousImage)
			lb.POST("/close", h.closeLightbox)
			lb.POST("/jump/:index", h.jumpTo)
			lb.POST("/zoom", h.toggleZoom)
			lb.POST("/key", h.handleKey)
		}
	}
}

// sessionMiddleware loads the viewer session or starts a new one
func (h *Handler) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if id, err := c.Cookie(sessionCookie); err == nil {
			sess, err := h.sessions.Get(ctx, id)
			if err == nil {
				c.Set("session", sess)
				c.Next()
				return
			}
			if !errors.Is(err, session.ErrSessionNotFound) && !errors.Is(err, session.ErrSessionExpired) && !errors.Is(err, session.ErrInvalidSession) {
				h.logger.Warn("Failed to load session", "error", err, "request_id", c.GetString("request_id"))
			}
		}

		sess, err := h.sessions.Create(ctx, false)
		if err != nil {
			h.logger.Error("Failed to create session", "error", err, "request_id", c.GetString("request_id"))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
			return
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(sessionCookie, sess.ID, int(h.ttl.Seconds()), "/", "", h.secure, true)
		c.Set("session", sess)
		c.Next()
	}
}

func currentSession(c *gin.Context) *session.Session {
	return c.MustGet("session").(*session.Session)
}

// currentView returns the session's view, mounted
func (h *Handler) currentView(c *gin.Context) *view {
	v, _ := h.registry.get(currentSession(c).ID)
	if !v.ctrl.Mounted() {
		if err := h.registry.mount(v); err != nil {
			h.logger.Warn("Failed to mount gallery", "error", err, "request_id", c.GetString("request_id"))
		}
	}
	return v
}

// stateResponse is the JSON answer to an action
type stateResponse struct {
	Success bool             `json:"success"`
	Error   string           `json:"error,omitempty"`
	State   gallery.Snapshot `json:"state"`
	Alerts  []string         `json:"alerts,omitempty"`
}

func wantsJSON(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}

// respond answers an action with the new state as JSON, or redirects back
func (h *Handler) respond(c *gin.Context, v *view, status int, err error, fallback string) {
	if wantsJSON(c) {
		resp := stateResponse{
			Success: err == nil,
			State:   v.ctrl.Snapshot(),
			Alerts:  v.alerts.Drain(),
		}
		if err != nil {
			resp.Error = err.Error()
		}
		c.JSON(status, resp)
		return
	}
	c.Redirect(http.StatusSeeOther, returnTo(c, fallback))
}

// returnTo is the local path to go back to after an action
func returnTo(c *gin.Context, fallback string) string {
	target := c.PostForm("return_to")
	if strings.HasPrefix(target, "/") && !strings.HasPrefix(target, "//") {
		return target
	}
	return fallback
}

func (h *Handler) homePath(c *gin.Context) string {
	if currentSession(c).Admin {
		return "/admin"
	}
	return "/"
}
