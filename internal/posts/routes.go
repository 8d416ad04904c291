package posts

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the JSON read API on rg
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/posts")
	{
		group.GET("", h.ListPage)    // GET /api/posts?search=&page=0&page_size=12
		group.GET("/all", h.ListAll) // GET /api/posts/all?search=
		group.GET("/:id", h.GetPost) // GET /api/posts/:id
	}
}
