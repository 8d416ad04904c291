package web

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"lens/internal/gallery"
)

func (h *Handler) viewerPage(c *gin.Context) {
	h.renderGallery(c, false)
}

func (h *Handler) adminPage(c *gin.Context) {
	h.renderGallery(c, true)
}

// renderGallery applies q, page and w to the session's controller and
// renders the grid. A fresh controller starts from the saved preferences.
func (h *Handler) renderGallery(c *gin.Context, admin bool) {
	ctx := c.Request.Context()
	sess := currentSession(c)
	v, created := h.registry.get(sess.ID)

	s := v.ctrl.Snapshot()
	search, page, size := s.Search, s.Page, s.PageSize
	if created {
		search, page = sess.Search, sess.Page
		if sess.PageSize > 0 {
			size = sess.PageSize
		}
	}

	if q, ok := c.GetQuery("q"); ok && q != search {
		search = q
		page = 0
	}
	if raw, ok := c.GetQuery("page"); ok {
		if p, err := strconv.Atoi(raw); err == nil {
			page = p
		}
	}
	if raw, ok := c.GetQuery("w"); ok {
		if w, err := strconv.Atoi(raw); err == nil {
			size = gallery.PageSizeForWidth(w)
		}
	}

	changed := v.ctrl.Restore(search, page, size)
	if !v.ctrl.Mounted() {
		if err := h.registry.mount(v); err != nil {
			h.logger.Warn("Failed to mount gallery", "error", err, "request_id", c.GetString("request_id"))
		}
	} else if changed {
		_ = v.ctrl.Refresh(ctx)
	}

	s = v.ctrl.Snapshot()
	sess.Admin = admin
	sess.Search, sess.Page, sess.PageSize = s.Search, s.Page, s.PageSize
	if err := h.sessions.Save(ctx, sess); err != nil {
		h.logger.Warn("Failed to save session", "error", err, "request_id", c.GetString("request_id"))
	}

	data := pageData{
		Title:    "Gallery",
		Admin:    admin,
		BasePath: "/",
		ReturnTo: c.Request.URL.RequestURI(),
		State:    s,
		Alerts:   v.alerts.Drain(),
		Slots:    viewerSlots,
	}
	if admin {
		data.Title = "Gallery admin"
		data.BasePath = "/admin"
		data.Slots = adminSlots
	}
	c.HTML(http.StatusOK, "layout", data)
}
