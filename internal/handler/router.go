package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xxxsen/sharebox/internal/middleware"
)

type RouterDeps struct {
	Files           *FileHandler
	Shares          *ShareHandler
	Blobs           *BlobHandler
	JWTSecret       []byte
	AccessRateLimit time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	authGroup.POST("/files", deps.Files.Upload)
	authGroup.GET("/files", deps.Files.List)
	authGroup.DELETE("/files/:id", deps.Files.Delete)
	authGroup.POST("/files/:id/shares", deps.Shares.Create)
	authGroup.GET("/files/:id/shares", deps.Shares.List)
	authGroup.DELETE("/shares/:id", deps.Shares.Revoke)

	api.GET("/public/shares/:token", deps.Shares.PublicMeta)
	api.POST("/public/shares/:token/access", middleware.RateLimit(deps.AccessRateLimit), deps.Shares.PublicAccess)
	api.GET("/blobs/:key", deps.Blobs.Get)
	api.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
