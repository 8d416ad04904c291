package posts

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 12
	maxPageSize     = 100
)

// Handler serves the read side of the posts collection as JSON
type Handler struct {
	service *Service
}

// NewHandler creates a new posts handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ListPage handles GET /api/posts?search=&page=&page_size=
// page is zero based, like the gallery pager.
func (h *Handler) ListPage(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))

	if page < 0 {
		page = 0
	}
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}

	result, err := h.service.GetPage(c.Request.Context(), c.Query("search"), page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Success: false,
			Error:   "Failed to retrieve posts",
		})
		return
	}

	c.JSON(http.StatusOK, PageResponse{Success: true, Data: result})
}

// ListAll handles GET /api/posts/all?search=
func (h *Handler) ListAll(c *gin.Context) {
	posts, err := h.service.All(c.Request.Context(), c.Query("search"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Success: false,
			Error:   "Failed to retrieve posts",
		})
		return
	}

	c.JSON(http.StatusOK, ListResponse{Success: true, Data: posts})
}

// GetPost handles GET /api/posts/:id
func (h *Handler) GetPost(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error:   "Invalid post ID",
		})
		return
	}

	post, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrPostNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Success: false,
				Error:   "Post not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Success: false,
			Error:   "Failed to retrieve post",
		})
		return
	}

	c.JSON(http.StatusOK, PostResponse{Success: true, Data: post})
}
