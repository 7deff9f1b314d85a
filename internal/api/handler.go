package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/extraction"
	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/gapfill"
	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/grid"
	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/interpolate"
)

// maxBodyBytes bounds request bodies; inline fields can be large.
const maxBodyBytes = 64 << 20

// GridStore loads stored fields by variable name.
type GridStore interface {
	Grid(ctx context.Context, variable string, date *time.Time) (*grid.Grid, error)
}

// Handler holds shared dependencies for all HTTP handlers. The pipeline and
// its mesh cache serve stored fields only; inline fields are client-supplied
// and get a pipeline per request.
type Handler struct {
	pipeline *extraction.Pipeline
	store    GridStore
}

// NewHandler creates a new Handler. store may be nil, in which case only
// inline fields can be extracted.
func NewHandler(pipeline *extraction.Pipeline, store GridStore) *Handler {
	if pipeline == nil {
		pipeline = extraction.NewPipeline(nil, nil)
	}
	return &Handler{pipeline: pipeline, store: store}
}

// RegisterRoutes attaches all routes to the provided mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("POST /v1/extract", h.handleExtract)
	if h.store != nil {
		mux.HandleFunc("POST /v1/variables/{variable}/extract", h.handleExtractStored)
	}
}

// handleHealth returns 204 No Content for liveness checks.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

type extractRequest struct {
	Lon    []float64    `json:"lon"`
	Lat    []float64    `json:"lat"`
	Field  [][]float64  `json:"field"` // one row of latitude values per longitude
	Points []grid.Point `json:"points"`
	Date   string       `json:"date,omitempty"`
}

type storedRequest struct {
	Points []grid.Point `json:"points"`
	Date   string       `json:"date,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	g, err := grid.FromRows(req.Lon, req.Lat, req.Field)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	h.run(w, r, extraction.NewPipeline(nil, nil), g, req.Points, date)
}

func (h *Handler) handleExtractStored(w http.ResponseWriter, r *http.Request) {
	var req storedRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	variable := r.PathValue("variable")
	g, err := h.store.Grid(r.Context(), variable, date)
	var notFound *grid.DateNotFoundError
	if errors.As(err, &notFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "load grid", "variable", variable, "error", err)
		writeError(w, http.StatusBadGateway, fmt.Errorf("load grid %q", variable))
		return
	}

	h.run(w, r, h.pipeline, g, req.Points, date)
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request, pipeline *extraction.Pipeline, g *grid.Grid, points []grid.Point, date *time.Time) {
	result, err := pipeline.Run(r.Context(), g, points, date)
	var insufficient *gapfill.InsufficientDataError
	switch {
	case errors.Is(err, interpolate.ErrDegenerateGrid), errors.As(err, &insufficient):
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	case err != nil:
		slog.ErrorContext(r.Context(), "extraction failed", "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("extraction failed"))
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, fmt.Errorf("date %q: want YYYY-MM-DD", s)
	}
	return &d, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
