package controller

import (
	"net/http"

	"testwise_attempt/internal/service"
	"testwise_attempt/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type HealthController struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Registry *service.SessionRegistry
}

func NewHealthController(db *gorm.DB, rdb *redis.Client, registry *service.SessionRegistry) *HealthController {
	return &HealthController{DB: db, Redis: rdb, Registry: registry}
}

// @Summary Health check
// @Description Reports the configured backing stores and the number of live sessions
// @Tags System
// @Produce json
// @Success 200 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	components := gin.H{}

	if c.DB != nil {
		sqlDB, err := c.DB.DB()
		if err != nil {
			util.LogInternalError(ctx, err)
			return
		}
		if err := sqlDB.PingContext(ctx.Request.Context()); err != nil {
			util.Error(ctx, http.StatusServiceUnavailable, "Database unavailable")
			return
		}
		components["database"] = "up"
	}

	if c.Redis != nil {
		if err := c.Redis.Ping(ctx.Request.Context()).Err(); err != nil {
			util.Error(ctx, http.StatusServiceUnavailable, "Redis unavailable")
			return
		}
		components["redis"] = "up"
	}

	data := gin.H{
		"status":     "ok",
		"components": components,
	}
	if c.Registry != nil {
		data["sessions"] = c.Registry.Len()
	}
	util.Success(ctx, data)
}
