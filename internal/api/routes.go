package api

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	// Health check
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/students", handler.GetStudents)
		v1.GET("/snapshot", handler.GetSnapshot)
		v1.GET("/students/:student_id/homework", handler.GetHomework)
		v1.GET("/students/:student_id/schedule", handler.GetSchedule)
		v1.GET("/students/:student_id/exams", handler.GetExams)
		v1.GET("/students/:student_id/grades", handler.GetGrades)

		v1.POST("/refresh", handler.TriggerRefresh)
		v1.GET("/refresh/cooldown", handler.GetCooldown)
		v1.POST("/auth/clear-cache", handler.ClearAuthCache)
	}
}
