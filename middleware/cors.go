package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/appraisal-orders-api/config"
)

// CORS allows the dashboard origins. Outside production every origin is allowed.
func CORS(cfg *config.Config) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	if cfg.IsProduction() {
		corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowHeaders(ActorHeader, RequestIDHeader)
	corsConfig.AddExposeHeaders(RequestIDHeader, "Content-Disposition")
	return cors.New(corsConfig)
}
