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
		// Sync routes
		v1.POST("/sync/attendance", handler.SyncAttendance)
		v1.POST("/sync/evaluations", handler.SyncEvaluations)
		v1.POST("/sync/retry", handler.RetrySync)
		v1.GET("/sync/status/:owner_id", handler.GetSyncStatus)

		// Guardian link routes
		v1.GET("/guardians/:guardian_id/roster", handler.GetRoster)

		// Audit routes
		v1.GET("/audit", handler.GetAudit)
		v1.POST("/audit/export", handler.ExportAudit)
		v1.GET("/audit/export/:report_id", handler.DownloadAuditExport)
	}
}
