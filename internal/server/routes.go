package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lens/internal/posts"
)

// RegisterRoutes builds the gin engine
func (s *Server) RegisterRoutes() http.Handler {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware(s.logger))
	r.Use(CORSMiddleware(s.cfg.CORSOrigins))

	// 32 MiB of a multipart upload stays in memory, the rest spills to disk
	r.MaxMultipartMemory = 32 << 20

	r.GET("/health", s.healthHandler)

	if s.posts != nil {
		api := r.Group("/api")
		posts.NewHandler(s.posts).RegisterRoutes(api)
	}

	if s.web != nil {
		s.web.RegisterRoutes(r)
	}

	return r
}

// healthHandler reports database, storage and cache status. Only the
// database decides the status code.
func (s *Server) healthHandler(c *gin.Context) {
	ctx := c.Request.Context()
	response := make(map[string]interface{})
	code := http.StatusOK

	if s.db != nil {
		dbHealth := s.db.Health(ctx)
		response["database"] = dbHealth
		if dbHealth["status"] != "up" {
			code = http.StatusServiceUnavailable
		}
	}

	if s.storage != nil {
		storageHealth := make(map[string]string)
		if err := s.storage.Health(ctx); err != nil {
			storageHealth["status"] = "down"
			storageHealth["error"] = err.Error()
		} else {
			storageHealth["status"] = "up"
		}
		response["storage"] = storageHealth
	}

	if s.posts != nil {
		response["cache"] = s.posts.CacheHealth(ctx)
	}

	c.JSON(code, response)
}
