package analytics

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the read-only report endpoints.
func (r *Reporter) RegisterRoutes(router gin.IRouter) {
	router.GET("/v1/reports/hourly-usage", r.HandleHourlyUsage)
	router.GET("/v1/reports/top-songs", r.HandleTopSongs)
}

// HandleHourlyUsage handles GET /v1/reports/hourly-usage
func (r *Reporter) HandleHourlyUsage(c *gin.Context) {
	rows, err := r.HourlyUsage(c.Request.Context())
	if err != nil {
		slog.Error("Hourly usage report failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "report failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"hours_by_hour_of_day": rows})
}

// HandleTopSongs handles GET /v1/reports/top-songs
func (r *Reporter) HandleTopSongs(c *gin.Context) {
	rows, err := r.TopSongs(c.Request.Context())
	if err != nil {
		slog.Error("Top songs report failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "report failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"top_songs": rows})
}
