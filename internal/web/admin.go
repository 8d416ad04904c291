package web

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"lens/internal/gallery"
	"lens/internal/posts"
)

func (h *Handler) newPost(c *gin.Context) {
	v := h.currentView(c)
	v.ctrl.OpenCreate()
	h.respond(c, v, http.StatusOK, nil, "/admin")
}

func (h *Handler) editPost(c *gin.Context) {
	v := h.currentView(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.respond(c, v, http.StatusBadRequest, errors.New("invalid post ID"), "/admin")
		return
	}
	if err := v.ctrl.OpenEdit(id); err != nil {
		v.alerts.Alert("Post not found.")
		h.respond(c, v, http.StatusNotFound, err, "/admin")
		return
	}
	h.respond(c, v, http.StatusOK, nil, "/admin")
}

// savePost takes the multipart form (caption, optional file, optional
// post_id) into the controller form and saves it.
func (h *Handler) savePost(c *gin.Context) {
	v := h.currentView(c)

	if raw := c.PostForm("post_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.respond(c, v, http.StatusBadRequest, errors.New("invalid post ID"), "/admin")
			return
		}
		if err := v.ctrl.OpenEdit(id); err != nil {
			v.alerts.Alert("Post not found.")
			h.respond(c, v, http.StatusNotFound, err, "/admin")
			return
		}
	} else if !v.ctrl.Snapshot().Form.Open {
		v.ctrl.OpenCreate()
	}

	v.ctrl.SetCaption(c.PostForm("caption"))
	if fh, err := c.FormFile("file"); err == nil {
		v.ctrl.SelectFile(uploadFromHeader(fh))
	}

	err := v.ctrl.Save(c.Request.Context())
	switch {
	case err == nil:
		h.respond(c, v, http.StatusOK, nil, "/admin")
	case errors.Is(err, gallery.ErrSaveInProgress):
		h.respond(c, v, http.StatusConflict, err, "/admin")
	case errors.Is(err, gallery.ErrCaptionRequired), errors.Is(err, gallery.ErrImageRequired):
		h.respond(c, v, http.StatusBadRequest, err, "/admin")
	default:
		h.respond(c, v, http.StatusBadGateway, err, "/admin")
	}
}

func uploadFromHeader(fh *multipart.FileHeader) *gallery.Upload {
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(filepath.Ext(fh.Filename)); byExt != "" {
			contentType = byExt
		}
	}
	return &gallery.Upload{
		Name:        fh.Filename,
		ContentType: contentType,
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

func (h *Handler) resetForm(c *gin.Context) {
	v := h.currentView(c)
	v.ctrl.ResetForm()
	h.respond(c, v, http.StatusOK, nil, "/admin")
}

func (h *Handler) cancelForm(c *gin.Context) {
	v := h.currentView(c)
	v.ctrl.CloseForm()
	h.respond(c, v, http.StatusOK, nil, "/admin")
}

// deletePost asks for confirmation unless the request carries the answer
// (confirm=yes or confirm=no), then runs the controller delete.
func (h *Handler) deletePost(c *gin.Context) {
	v := h.currentView(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.respond(c, v, http.StatusBadRequest, errors.New("invalid post ID"), "/admin")
		return
	}
	p, ok := v.ctrl.Post(id)
	if !ok {
		h.respond(c, v, http.StatusNotFound, posts.ErrPostNotFound, "/admin")
		return
	}

	answer, answered := c.GetPostForm("confirm")
	if !answered {
		if wantsJSON(c) {
			c.JSON(http.StatusPreconditionRequired, stateResponse{
				Success: false,
				Error:   gallery.DeletePrompt,
				State:   v.ctrl.Snapshot(),
			})
			return
		}
		c.HTML(http.StatusOK, "layout", pageData{
			Title:    "Confirm delete",
			Admin:    true,
			BasePath: "/admin",
			State:    v.ctrl.Snapshot(),
			Slots:    adminSlots,
			Confirm: &confirmData{
				Prompt:  gallery.DeletePrompt,
				PostID:  p.ID.String(),
				Caption: p.Caption,
			},
		})
		return
	}

	v.deleteMu.Lock()
	v.gate.set(answer == "yes")
	deleted, err := v.ctrl.Delete(c.Request.Context(), id)
	v.gate.set(false)
	v.deleteMu.Unlock()

	if err != nil {
		h.respond(c, v, http.StatusBadGateway, err, "/admin")
		return
	}
	if deleted {
		h.logger.Info("Post deleted from admin", "id", id, "request_id", c.GetString("request_id"))
	}
	h.respond(c, v, http.StatusOK, nil, "/admin")
}
