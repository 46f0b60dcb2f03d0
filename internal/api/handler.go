package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/audit"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/config"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/db"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/logger"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/model"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/reconcile"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/storage"
	syncsvc "github.com/EdwinT12/Teachers-Portal-main-sub001/internal/sync"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/pkg/errors"
)

const sessionHeader = "X-Session-ID"

type Handler struct {
	repo        db.Repository
	syncService *syncsvc.Service
	reconciler  *reconcile.Service
	auditor     *audit.Auditor
	archive     storage.Archive
	cfg         *config.Config
	log         zerolog.Logger
}

func NewHandler(
	repo db.Repository,
	syncService *syncsvc.Service,
	reconciler *reconcile.Service,
	auditor *audit.Auditor,
	archive storage.Archive,
	cfg *config.Config,
) *Handler {
	return &Handler{
		repo:        repo,
		syncService: syncService,
		reconciler:  reconciler,
		auditor:     auditor,
		archive:     archive,
		cfg:         cfg,
		log:         logger.Get(),
	}
}

func (h *Handler) SyncAttendance(c *gin.Context) {
	h.runSync(c, model.RecordKindAttendance, h.syncService.SyncPending)
}

func (h *Handler) SyncEvaluations(c *gin.Context) {
	h.runSync(c, model.RecordKindEvaluation, h.syncService.SyncPending)
}

// RetrySync re-runs failed records. It only ever fires on an explicit user
// action; a broken token must not cause silent repeated remote calls.
func (h *Handler) RetrySync(c *gin.Context) {
	var req model.RetryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	h.execSync(c, req.OwnerID, model.RecordKind(req.Kind), h.syncService.RetryFailed)
}

type syncFunc func(ctx context.Context, sessionID string, ownerID int64, kind model.RecordKind) (model.SyncResult, error)

func (h *Handler) runSync(c *gin.Context, kind model.RecordKind, fn syncFunc) {
	var req model.SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	h.execSync(c, req.OwnerID, kind, fn)
}

func (h *Handler) execSync(c *gin.Context, ownerID int64, kind model.RecordKind, fn syncFunc) {
	sessionID := c.GetHeader(sessionHeader)
	if sessionID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing session"})
		return
	}

	result, err := fn(c.Request.Context(), sessionID, ownerID, kind)
	if err != nil {
		switch {
		case err == errors.ErrNothingToSync:
			c.JSON(http.StatusBadRequest, model.SyncResponse{Result: result, Error: err.Error()})
		case errors.IsSessionExpired(err):
			// Distinct from a transient failure: the UI must prompt
			// re-authentication, not offer a plain retry.
			c.JSON(http.StatusUnauthorized, model.SyncResponse{Result: result, SessionError: true, Error: err.Error()})
		case err == errors.ErrSheetConfigAbsent:
			c.JSON(http.StatusBadRequest, model.SyncResponse{Result: result, Error: err.Error()})
		default:
			h.log.Error().Err(err).Int64("owner_id", ownerID).Str("kind", string(kind)).Msg("Sync failed")
			c.JSON(http.StatusBadGateway, model.SyncResponse{Result: result, Error: err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, model.SyncResponse{Result: result})
}

func (h *Handler) GetSyncStatus(c *gin.Context) {
	ownerID, err := strconv.ParseInt(c.Param("owner_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid owner ID"})
		return
	}

	kind := model.RecordKind(c.DefaultQuery("kind", string(model.RecordKindEvaluation)))
	if kind != model.RecordKindAttendance && kind != model.RecordKindEvaluation {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid record kind"})
		return
	}

	status, err := h.repo.GetSyncStatus(c.Request.Context(), ownerID, kind)
	if err != nil {
		h.log.Error().Err(err).Int64("owner_id", ownerID).Msg("Failed to get sync status")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, status)
}

// GetRoster loads a guardian's linked students, repairing broken links on the
// way. Broken entries are returned, not hidden.
func (h *Handler) GetRoster(c *gin.Context) {
	guardianID, err := strconv.ParseInt(c.Param("guardian_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid guardian ID"})
		return
	}

	result, err := h.reconciler.LoadRoster(c.Request.Context(), guardianID)
	if err != nil {
		h.log.Error().Err(err).Int64("guardian_id", guardianID).Msg("Failed to load roster")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetAudit(c *gin.Context) {
	report, err := h.auditor.Audit(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Audit failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *Handler) ExportAudit(c *gin.Context) {
	var req model.ExportRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	report, err := h.auditor.Audit(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Audit failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if req.Archive {
		if h.archive == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Report archive is not configured"})
			return
		}
		_, key, err := audit.ExportAndArchive(c.Request.Context(), report, h.archive)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to archive audit report")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to archive report"})
			return
		}
		c.JSON(http.StatusOK, model.ExportResponse{ReportID: report.ID, ArchiveKey: key})
		return
	}

	buf, err := audit.ExportWorkbook(report)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to render audit workbook")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render report"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="audit-report.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// DownloadAuditExport streams a previously archived report back out of the
// object store.
func (h *Handler) DownloadAuditExport(c *gin.Context) {
	if h.archive == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Report archive is not configured"})
		return
	}

	reportID := c.Param("report_id")
	key := audit.ArchiveKeyForID(reportID)

	ok, err := h.archive.Exists(c.Request.Context(), key)
	if err != nil {
		h.log.Error().Err(err).Str("key", key).Msg("Failed to check archived report")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return
	}

	body, err := h.archive.Download(c.Request.Context(), key)
	if err != nil {
		h.log.Error().Err(err).Str("key", key).Msg("Failed to download archived report")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		h.log.Error().Err(err).Str("key", key).Msg("Failed to read archived report")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.xlsx"`, reportID))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": h.cfg.App.Name,
		"version": h.cfg.App.Version,
	})
}
