package router

import (
	"net/http"

	"github.com/arnavshah/osc-matching-api/pkg/handlers"
	"github.com/gin-gonic/gin"
)

// Version is reported by the root endpoint
const Version = "1.0.0"

// New builds the gin engine with every route registered
func New(h *handlers.Handler) *gin.Engine {
	r := gin.New()
	r.Use(h.Log.Middleware(), gin.Recovery())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "OSC Matching API",
			"version": Version,
		})
	})

	r.POST("/admin/login", h.Login)

	// Admin Endpoints
	admin := r.Group("/admin")
	admin.Use(h.AuthMiddleware())
	{
		admin.POST("/keys", h.GenerateKey)
		admin.GET("/keys", h.ListKeys)
		admin.PUT("/keys/:id", h.UpdateKeyLimit)
		admin.DELETE("/keys/:id", h.RevokeKey)
		admin.GET("/usage/:id", h.GetUsage)
		admin.GET("/events", h.ListEvents)
		admin.POST("/events/ack", h.AckEvents)
	}

	api := r.Group("/api")
	api.Use(h.APIKeyMiddleware())
	{
		// Stateless matching
		api.POST("/match", h.MatchJSON)
		api.POST("/match/csv", h.MatchCSV)
		api.POST("/rank", h.Rank)
		api.POST("/validate", h.ValidateInput)
		api.GET("/usage", h.GetMyUsage)

		// Stored projects and candidates
		api.POST("/projects", h.CreateProject)
		api.GET("/projects", h.ListProjects)
		api.GET("/projects/:id", h.GetProject)
		api.GET("/projects/:id/candidates", h.ProjectCandidates)
		api.POST("/projects/:id/assign", h.AssignProject)
		api.DELETE("/projects/:id/assign", h.UnassignProject)
		api.POST("/candidates", h.CreateCandidate)
		api.GET("/candidates", h.ListCandidates)

		// Cached global assignment passes
		api.POST("/blocks/:block/suggestions", h.RunSuggestions)
		api.GET("/blocks/:block/suggestions", h.GetSuggestions)
		api.DELETE("/blocks/:block/suggestions", h.ClearSuggestions)
	}

	return r
}
