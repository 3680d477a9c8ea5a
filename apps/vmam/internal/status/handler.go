// Package status はデーモンの稼働状況を返すHTTP APIを提供する。
package status

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oyaguma3/vmam/apps/vmam/internal/config"
	"github.com/oyaguma3/vmam/apps/vmam/internal/directory"
	"github.com/oyaguma3/vmam/apps/vmam/internal/store"
	"github.com/oyaguma3/vmam/pkg/httputil"
	"github.com/oyaguma3/vmam/pkg/logging"
)

// HealthResponse はGET /healthの応答
type HealthResponse struct {
	Status    string `json:"status"`
	Directory string `json:"directory"`
	Uptime    string `json:"uptime"`
}

// Handler はステータスAPIのハンドラー
type Handler struct {
	prober  directory.Prober
	reports ReportReader
	started time.Time
}

// NewHandler は新しいHandlerを生成する。
func NewHandler(prober directory.Prober, reports ReportReader) *Handler {
	return &Handler{prober: prober, reports: reports, started: time.Now()}
}

// HandleHealth はGET /health のハンドラー。ディレクトリへの疎通を確認する。
func (h *Handler) HandleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), config.LDAPProbeTimeout)
	defer cancel()

	if err := h.prober.Ping(ctx); err != nil {
		slog.Warn("health check failed",
			logging.WithEventID("HEALTH_DIR_ERR"),
			logging.WithTraceID(c.GetString(httputil.TraceIDKey)),
			logging.WithError(err),
		)
		httputil.WriteError(c, httputil.ServiceUnavailable(err.Error()).WithType(httputil.TypeDirectoryUnreachable))
		return
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Directory: "reachable",
		Uptime:    time.Since(h.started).Truncate(time.Second).String(),
	})
}

// HandleLastReport はGET /api/v1/reports/last のハンドラー。
func (h *Handler) HandleLastReport(c *gin.Context) {
	r, err := h.reports.Last(c.Request.Context())
	switch {
	case errors.Is(err, store.ErrKeyNotFound):
		httputil.WriteError(c, httputil.NotFound("no batch has completed yet").WithType(httputil.TypeReportNotFound))
		return
	case err != nil:
		slog.Error("report read failed",
			logging.WithEventID("REPORT_READ_ERR"),
			logging.WithTraceID(c.GetString(httputil.TraceIDKey)),
			logging.WithError(err),
		)
		httputil.WriteError(c, httputil.ServiceUnavailable("report store unavailable").WithType(httputil.TypeStoreUnavailable))
		return
	}
	c.JSON(http.StatusOK, r)
}
