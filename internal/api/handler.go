package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"schulmanager-sync/internal/config"
	"schulmanager-sync/internal/coordinator"
	"schulmanager-sync/internal/logger"
	"schulmanager-sync/pkg/errors"
)

type Handler struct {
	coord *coordinator.Coordinator
	cfg   *config.Config
	log   zerolog.Logger
}

func NewHandler(coord *coordinator.Coordinator, cfg *config.Config) *Handler {
	return &Handler{
		coord: coord,
		cfg:   cfg,
		log:   logger.Component("api"),
	}
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": h.cfg.App.Name,
		"version": h.cfg.App.Version,
	})
}

func (h *Handler) GetStudents(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"students": h.coord.Students()})
}

func (h *Handler) GetSnapshot(c *gin.Context) {
	data := h.coord.Data()
	if data == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No snapshot available yet"})
		return
	}
	c.JSON(http.StatusOK, data)
}

func (h *Handler) GetHomework(c *gin.Context) {
	sid := c.Param("student_id")
	data := h.coord.Data()
	if data == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No snapshot available yet"})
		return
	}
	homework, ok := data.Homework[sid]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"student_id": sid, "homework": homework})
}

func (h *Handler) GetSchedule(c *gin.Context) {
	sid := c.Param("student_id")
	data := h.coord.Data()
	if data == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No snapshot available yet"})
		return
	}
	schedule, ok := data.Schedule[sid]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"student_id": sid, "schedule": schedule})
}

func (h *Handler) GetExams(c *gin.Context) {
	sid := c.Param("student_id")
	data := h.coord.Data()
	if data == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No snapshot available yet"})
		return
	}
	exams, ok := data.Exams[sid]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"student_id": sid, "exams": exams})
}

func (h *Handler) GetGrades(c *gin.Context) {
	sid := c.Param("student_id")
	data := h.coord.Data()
	if data == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No snapshot available yet"})
		return
	}
	grades, ok := data.Grades[sid]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"student_id": sid, "grades": grades})
}

// TriggerRefresh runs a manual refresh. A request inside the cooldown
// window is rejected before any portal traffic, with the remaining wait in
// the body.
func (h *Handler) TriggerRefresh(c *gin.Context) {
	data, err := h.coord.ManualRefresh(c.Request.Context())
	if err != nil {
		if ce, ok := errors.IsCooldown(err); ok {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":             "Refresh cooldown active",
				"remaining_seconds": ce.RemainingSeconds,
			})
			return
		}
		h.log.Error().Err(err).Msg("Manual refresh failed")
		if errors.IsAuth(err) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "Portal authentication failed"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Refresh failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Refresh completed",
		"students": len(data.Students),
	})
}

func (h *Handler) GetCooldown(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"can_refresh":       h.coord.Cooldown.CanRefresh(),
		"remaining_seconds": h.coord.Cooldown.RemainingSeconds(),
	})
}

// ClearAuthCache drops the session token and bundle version; the next
// refresh logs in and rediscovers from scratch.
func (h *Handler) ClearAuthCache(c *gin.Context) {
	h.coord.ClearAuthCache()
	h.log.Info().Msg("Auth cache cleared")
	c.JSON(http.StatusOK, gin.H{"message": "Auth cache cleared"})
}
