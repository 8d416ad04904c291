package web

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"lens/internal/storage"
)

// serveBlob streams an image from the bucket under its public URL
func (h *Handler) serveBlob(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")

	obj, err := h.blobs.Open(c.Request.Context(), key)
	switch {
	case errors.Is(err, storage.ErrInvalidKey), errors.Is(err, storage.ErrObjectNotFound):
		c.Status(http.StatusNotFound)
		return
	case err != nil:
		h.logger.Error("Failed to open image", "key", key, "error", err, "request_id", c.GetString("request_id"))
		c.Status(http.StatusBadGateway)
		return
	}
	defer obj.Body.Close()

	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	if obj.ContentLength > 0 {
		c.Header("Content-Length", strconv.FormatInt(obj.ContentLength, 10))
	}
	c.Status(http.StatusOK)

	if c.Request.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(c.Writer, obj.Body); err != nil {
		h.logger.Debug("Image stream interrupted", "key", key, "error", err)
	}
}
