package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mssola/useragent"

	"forensics/internal/intel/models"
	platformmetrics "forensics/internal/platform/metrics"
	dErrors "forensics/pkg/domain-errors"
	"forensics/pkg/platform/httputil"
	"forensics/pkg/requestcontext"
)

// HashHeader carries the SHA-256 of the rendered report text.
const HashHeader = "X-Report-Hash"

// Service generates reports.
type Service interface {
	Generate(ctx context.Context, input string) (*models.Report, error)
}

// Handler exposes report generation over HTTP.
type Handler struct {
	service Service
	logger  *slog.Logger
	metrics *platformmetrics.Metrics
}

func New(service Service, logger *slog.Logger, metrics *platformmetrics.Metrics) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
		metrics: metrics,
	}
}

// Register mounts report endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/v1/reports/{domain}", h.HandleReport)
	r.Get("/v1/reports/{domain}/text", h.HandleReportText)
}

// HandleReport handles GET /v1/reports/{domain}.
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.generate(w, r, "report")
	if !ok {
		return
	}
	w.Header().Set(HashHeader, report.Hash)
	httputil.WriteJSON(w, http.StatusOK, FromReport(report))
}

// HandleReportText handles GET /v1/reports/{domain}/text.
func (h *Handler) HandleReportText(w http.ResponseWriter, r *http.Request) {
	report, ok := h.generate(w, r, "report_text")
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set(HashHeader, report.Hash)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(report.Text))
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request, route string) (*models.Report, bool) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	input := chi.URLParam(r, "domain")
	start := time.Now()

	report, err := h.service.Generate(ctx, input)
	if err != nil {
		code := dErrors.CodeInternal
		if errors.Is(err, context.DeadlineExceeded) {
			code = dErrors.CodeTimeout
		}
		h.logger.ErrorContext(ctx, "report generation failed",
			"request_id", requestID,
			"input", input,
			"error", err,
		)
		h.metrics.IncrementHTTPRequest(route, strconv.Itoa(statusOf(code)))
		httputil.WriteError(w, dErrors.Wrap(err, code, "report generation failed"))
		return nil, false
	}

	ua := useragent.New(requestcontext.UserAgent(ctx))
	browser, version := ua.Browser()
	h.logger.InfoContext(ctx, "report served",
		"request_id", requestID,
		"domain", report.Domain,
		"report_id", report.ID,
		"client_ip", requestcontext.ClientIP(ctx),
		"client_browser", browser,
		"client_browser_version", version,
		"client_os", ua.OS(),
		"client_bot", ua.Bot(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	h.metrics.IncrementHTTPRequest(route, strconv.Itoa(http.StatusOK))
	return report, true
}

func statusOf(code dErrors.Code) int {
	if code == dErrors.CodeTimeout {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// Health answers liveness probes. check, when set, reports dependency health.
func Health(check func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
