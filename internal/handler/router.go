package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/spark/internal/middleware"
)

type RouterDeps struct {
	Blocks *BlockHandler
	// RateLimit is the minimum gap between two ingests from one client.
	RateLimit time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/blocks", middleware.RateLimit(deps.RateLimit), deps.Blocks.Create)
	api.GET("/blocks", deps.Blocks.List)
	api.GET("/blocks/:id", deps.Blocks.Get)
	api.POST("/blocks/:id/process", middleware.RateLimit(deps.RateLimit), deps.Blocks.Process)
	api.GET("/blocks/:id/related", deps.Blocks.Related)
	api.POST("/blocks/:id/user_tags", deps.Blocks.AddUserTags)
	api.GET("/corpus", deps.Blocks.Corpus)
}
