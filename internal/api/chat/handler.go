package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/futig/foodsafety-backend/internal/api/middleware"
	"github.com/futig/foodsafety-backend/internal/config"
	"github.com/futig/foodsafety-backend/internal/entity"
	"github.com/futig/foodsafety-backend/internal/pkg/logger"
	"github.com/futig/foodsafety-backend/internal/pkg/response"
	"github.com/futig/foodsafety-backend/internal/pkg/validator"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type Handler struct {
	usecase       ChatUsecase
	formatters    FormatterFactory
	validator     *validator.Validator
	counties      config.CountyCatalog
	defaultCounty string
	maxBodySize   int64
	showDetails   bool
	now           func() time.Time
}

func NewHandler(
	usecase ChatUsecase,
	formatters FormatterFactory,
	validator *validator.Validator,
	cfg *config.Config,
) *Handler {
	return &Handler{
		usecase:       usecase,
		formatters:    formatters,
		validator:     validator,
		counties:      cfg.Counties,
		defaultCounty: cfg.DefaultCounty,
		maxBodySize:   cfg.FileUploadCfg.MaxUploadSize,
		showDetails:   cfg.IsDevelopment(),
		now:           time.Now,
	}
}

// Chat handles POST /api/chat
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Chat")

	var req entity.ChatRequest
	if err := response.DecodeJSON(w, r, &req, h.maxBodySize); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	if err := h.validator.ValidateChatRequest(&req); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "answering chat turn",
		zap.Int("message_count", len(req.Messages)),
		zap.Bool("has_image", req.QueryImage() != ""),
		zap.String("requested_county", req.County),
	)

	resp, err := h.usecase.Chat(ctx, middleware.UserIDFromContext(ctx), &req)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	if decision, ok := middleware.DecisionFromContext(ctx); ok {
		resp.RateLimit = &entity.RateLimitInfo{
			Limit:             decision.Limit,
			RemainingRequests: decision.Remaining,
			ResetTime:         decision.ResetAt.UTC(),
		}
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// Export handles POST /api/chat/export?format=markdown|docx|pdf
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "ExportAnswer")

	formatParam := r.URL.Query().Get("format")
	if formatParam == "" {
		formatParam = string(entity.FormatMarkdown)
	}

	format := entity.ExportFormat(formatParam)
	if !format.IsValid() {
		ctxzap.Warn(ctx, "invalid format parameter", zap.String("format", formatParam))
		h.respondError(ctx, w, http.StatusBadRequest, "invalid format parameter",
			fmt.Errorf("format must be one of: markdown, docx, pdf"))
		return
	}

	var req entity.ExportRequest
	if err := response.DecodeJSON(w, r, &req, h.maxBodySize); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}
	if err := h.validator.ValidateExportRequest(&req); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	fmtr, err := h.formatters.Create(format)
	if err != nil {
		if errors.Is(err, entity.ErrConfiguration) {
			h.respondError(ctx, w, http.StatusNotImplemented, "format not enabled on this server", err)
			return
		}
		h.respondError(ctx, w, http.StatusNotImplemented, "format not implemented", err)
		return
	}

	body, err := fmtr.Format(&req)
	if err != nil {
		if errors.Is(err, entity.ErrConfiguration) {
			h.respondError(ctx, w, http.StatusInternalServerError, "export format misconfigured", err)
			return
		}
		h.respondError(ctx, w, http.StatusInternalServerError, "failed to format answer", err)
		return
	}

	ctxzap.Info(ctx, "answer exported", zap.String("format", string(format)), zap.Int("bytes", len(body)))

	w.Header().Set("Content-Type", fmtr.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"compliance-answer-%s%s\"",
		h.now().UTC().Format("20060102-150405"), fmtr.FileExtension()))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// ListCounties handles GET /api/counties
func (h *Handler) ListCounties(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, entity.ListCountiesResponse{
		Default:  h.defaultCounty,
		Counties: h.counties,
	})
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) respondError(ctx context.Context, w http.ResponseWriter, status int, message string, err error) {
	if status >= http.StatusInternalServerError {
		ctxzap.Error(ctx, message, zap.Error(err))
	} else {
		ctxzap.Warn(ctx, message, zap.Error(err))
	}

	var details string
	if h.showDetails && err != nil {
		details = err.Error()
	}
	response.Error(w, status, message, details)
}

func (h *Handler) handleUsecaseError(ctx context.Context, w http.ResponseWriter, err error) {
	var limitErr *entity.LimitError
	switch {
	case errors.As(err, &limitErr):
		ctxzap.Info(ctx, "request over usage limit", zap.Error(err))
		middleware.SetRateLimitHeaders(w, limitErr.Limit, limitErr.Remaining, limitErr.ResetAt)
		middleware.WriteLimitExceeded(w, "Monthly request limit reached for your plan.", limitErr.ResetAt, h.now())
	case errors.Is(err, entity.ErrValidation):
		h.respondError(ctx, w, http.StatusBadRequest, validationMessage(err), err)
	case errors.Is(err, entity.ErrUnauthorized):
		h.respondError(ctx, w, http.StatusUnauthorized, "authentication required", err)
	case errors.Is(err, entity.ErrAccessDenied):
		h.respondError(ctx, w, http.StatusForbidden, "an active subscription is required", err)
	case errors.Is(err, entity.ErrRequestTimedOut), errors.Is(err, context.DeadlineExceeded):
		h.respondError(ctx, w, http.StatusGatewayTimeout, "the request took too long, please try again", err)
	case errors.Is(err, entity.ErrGenerativeProvider), errors.Is(err, entity.ErrEmbeddingProvider):
		h.respondError(ctx, w, http.StatusInternalServerError, "failed to generate answer", err)
	default:
		h.respondError(ctx, w, http.StatusInternalServerError, "internal server error", err)
	}
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, entity.ErrInvalidCounty):
		return "unsupported county"
	case errors.Is(err, entity.ErrInvalidImage):
		return "invalid image"
	case errors.Is(err, entity.ErrMissingField):
		return "missing required field"
	case errors.Is(err, entity.ErrInputTooLarge):
		return "request too large"
	default:
		return "invalid request"
	}
}
