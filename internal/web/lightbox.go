package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"lens/internal/gallery"
)

func (h *Handler) openLightbox(c *gin.Context) {
	v := h.currentView(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.respond(c, v, http.StatusBadRequest, errors.New("invalid post ID"), h.homePath(c))
		return
	}
	if err := v.ctrl.OpenLightbox(id); err != nil {
		h.respond(c, v, http.StatusNotFound, err, h.homePath(c))
		return
	}
	h.respond(c, v, http.StatusOK, nil, h.homePath(c))
}

func (h *Handler) nextImage(c *gin.Context) {
	v := h.currentView(c)
	v.ctrl.NextImage()
	h.respond(c, v, http.StatusOK, nil, h.homePath(c))
}

func (h *Handler) previousImage(c *gin.Context) {
	v := h.currentView(c)
	v.ctrl.PreviousImage()
	h.respond(c, v, http.StatusOK, nil, h.homePath(c))
}

func (h *Handler) closeLightbox(c *gin.Context) {
	v := h.currentView(c)
	v.ctrl.CloseLightbox()
	h.respond(c, v, http.StatusOK, nil, h.homePath(c))
}

func (h *Handler) jumpTo(c *gin.Context) {
	v := h.currentView(c)

	i, err := strconv.Atoi(c.Param("index"))
	if err != nil || !v.ctrl.JumpTo(i) {
		h.respond(c, v, http.StatusBadRequest, errors.New("invalid thumbnail index"), h.homePath(c))
		return
	}
	h.respond(c, v, http.StatusOK, nil, h.homePath(c))
}

// toggleZoom reads the click position (x, y) and image box (left, top,
// width, height). An image submit button sends z.x and z.y relative to the
// image instead, without a box, which zooms around the center.
func (h *Handler) toggleZoom(c *gin.Context) {
	v := h.currentView(c)

	pointer := gallery.Point{X: formFloat(c, "x", "z.x"), Y: formFloat(c, "y", "z.y")}
	bounds := gallery.Rect{
		Left:   formFloat(c, "left"),
		Top:    formFloat(c, "top"),
		Width:  formFloat(c, "width"),
		Height: formFloat(c, "height"),
	}
	v.ctrl.ToggleZoom(pointer, bounds)
	h.respond(c, v, http.StatusOK, nil, h.homePath(c))
}

// handleKey routes a key press; unbound keys and a closed lightbox are
// ignored.
func (h *Handler) handleKey(c *gin.Context) {
	v := h.currentView(c)
	v.ctrl.HandleKey(c.PostForm("key"))
	h.respond(c, v, http.StatusOK, nil, h.homePath(c))
}

// formFloat returns the first of names present as a number, or 0
func formFloat(c *gin.Context, names ...string) float64 {
	for _, name := range names {
		if raw, ok := c.GetPostForm(name); ok {
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				return f
			}
		}
	}
	return 0
}
