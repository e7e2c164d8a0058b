package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"restaurantepos/internal/infra"
	"restaurantepos/internal/realtime"
	"restaurantepos/internal/worker"
)

// Health returns a JSON health check response.
// Checks DB and Redis connectivity; never exposes credentials or internals.
// SMTP circuit state and DLQ sizes are informative and do not change the status.
func Health(db *gorm.DB, rdb *redis.Client, mailer *infra.Mailer, hub *realtime.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "connected"
		var dlq map[string]int64
		if rdb == nil || rdb.Ping(ctx).Err() != nil {
			redisStatus = "error"
		} else if dlq, err = worker.DLQLengths(ctx, rdb); err != nil {
			dlq = nil
		}

		smtpStatus := "disabled"
		if mailer != nil && mailer.Configurado() {
			smtpStatus = mailer.Estado().String()
		}

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus != "connected" {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"ok":          status == http.StatusOK,
			"db":          dbStatus,
			"redis":       redisStatus,
			"smtp":        smtpStatus,
			"dlq":         dlq,
			"ws_clientes": hub.Clientes(),
		})
	}
}
