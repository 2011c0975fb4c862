package admin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pgvanniekerk/ezsteal/internal/logging"
	"github.com/pgvanniekerk/ezsteal/internal/pool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PoolView is the part of a pool the admin routes read.
type PoolView interface {
	ID() string
	Closed() bool
	Stats() pool.Stats
}

// EventSource supplies recent log events.
type EventSource interface {
	Events() []logging.Event
}

// NewRouter returns the admin routes for p. events and gatherer may be nil, in
// which case /events and /metrics are not registered.
func NewRouter(p PoolView, events EventSource, gatherer prometheus.Gatherer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		if p.Closed() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "closed", "pool_id": p.ID()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "pool_id": p.ID()})
	})

	r.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, p.Stats())
	})

	if events != nil {
		r.GET("/events", func(c *gin.Context) {
			all := events.Events()

			if raw := c.Query("limit"); raw != "" {
				limit, err := strconv.Atoi(raw)
				if err != nil || limit < 0 {
					c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
					return
				}
				if limit < len(all) {
					all = all[len(all)-limit:]
				}
			}

			c.JSON(http.StatusOK, gin.H{"events": all})
		})
	}

	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	return r
}
