package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/futig/foodsafety-backend/internal/config"
	"github.com/futig/foodsafety-backend/internal/entity"
	"github.com/futig/foodsafety-backend/internal/pkg/logger"
	"github.com/futig/foodsafety-backend/internal/pkg/response"
	"github.com/futig/foodsafety-backend/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type Handler struct {
	usecase     IngestUsecase
	cfg         config.FileUploadConfig
	validator   *validator.Validator
	showDetails bool
}

func NewHandler(
	usecase IngestUsecase,
	cfg config.FileUploadConfig,
	validator *validator.Validator,
	showDetails bool,
) *Handler {
	return &Handler{
		usecase:     usecase,
		cfg:         cfg,
		validator:   validator,
		showDetails: showDetails,
	}
}

// UploadDocument handles POST /api/documents
func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "UploadDocument")

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadSize)
	if err := r.ParseMultipartForm(h.cfg.MaxUploadSize); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid form data or size too large", err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "file is required", err)
		return
	}
	defer file.Close()

	if err := h.validator.ValidateUpload(header); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	county := r.FormValue("county")
	if err := h.validator.ValidateCounty(county); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	source := r.FormValue("source")
	if source == "" {
		source = validator.SanitizeFilename(header.Filename)
	}

	ctx = logger.AddFields(ctx, zap.String("filename", header.Filename))
	ctxzap.Info(ctx, "ingesting uploaded document",
		zap.String("source", source),
		zap.String("county", county),
		zap.Int64("size", header.Size),
	)

	result, err := h.usecase.IngestFile(ctx, &entity.IngestFileRequest{
		Source:   source,
		County:   county,
		Filename: header.Filename,
		Size:     header.Size,
		Content:  file,
	})
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, result)
}

// IngestText handles POST /api/documents/text
func (h *Handler) IngestText(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "IngestText")

	var req entity.IngestTextRequest
	if err := response.DecodeJSON(w, r, &req, h.cfg.MaxUploadSize); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	if err := h.validator.ValidateIngestText(&req); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	result, err := h.usecase.IngestText(ctx, &req)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, result)
}

// ListSources handles GET /api/documents?county=
func (h *Handler) ListSources(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "ListSources")

	sources, err := h.usecase.ListSources(ctx, r.URL.Query().Get("county"))
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}
	if sources == nil {
		sources = []entity.SourceSummary{}
	}

	h.respondJSON(w, http.StatusOK, entity.ListSourcesResponse{Sources: sources})
}

// DeleteSource handles DELETE /api/documents/{source}?county=
func (h *Handler) DeleteSource(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")
	county := r.URL.Query().Get("county")

	ctx := logger.AddFields(r.Context(),
		zap.String("source", source),
		zap.String("action", "DeleteSource"),
	)

	deleted, err := h.usecase.DeleteSource(ctx, county, source)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, entity.DeleteSourceResponse{Status: "deleted", ChunksDeleted: deleted})
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) respondError(ctx context.Context, w http.ResponseWriter, status int, message string, err error) {
	ctxzap.Error(ctx, message, zap.Error(err))

	var details string
	if h.showDetails && err != nil {
		details = err.Error()
	}
	response.Error(w, status, message, details)
}

func (h *Handler) handleUsecaseError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, entity.ErrNotFound) {
		h.respondError(ctx, w, http.StatusNotFound, "source not found", err)
	} else if errors.Is(err, entity.ErrUnsupportedFileType) || errors.Is(err, entity.ErrFileTooLarge) || errors.Is(err, entity.ErrNoExtractableText) {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid file", err)
	} else if errors.Is(err, entity.ErrValidation) {
		h.respondError(ctx, w, http.StatusBadRequest, fmt.Sprintf("invalid parameter: %s", fieldHint(err)), err)
	} else if errors.Is(err, entity.ErrRequestTimedOut) || errors.Is(err, context.DeadlineExceeded) {
		h.respondError(ctx, w, http.StatusGatewayTimeout, "ingestion timed out", err)
	} else if errors.Is(err, entity.ErrConfiguration) {
		h.respondError(ctx, w, http.StatusInternalServerError, "document format not configured", err)
	} else {
		h.respondError(ctx, w, http.StatusInternalServerError, "internal server error", err)
	}
}

func fieldHint(err error) string {
	switch {
	case errors.Is(err, entity.ErrInvalidCounty):
		return "county"
	case errors.Is(err, entity.ErrMissingField):
		return "missing field"
	case errors.Is(err, entity.ErrInputTooLarge):
		return "too large"
	default:
		return "format"
	}
}
