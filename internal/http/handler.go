// Package httpapp exposes the acquisition engine as a JSON API.
package httpapp

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cesargomez89/pdfhunter/internal/acquire"
	"github.com/cesargomez89/pdfhunter/internal/app"
	"github.com/cesargomez89/pdfhunter/internal/http/dto"
	"github.com/cesargomez89/pdfhunter/internal/logger"
	"github.com/cesargomez89/pdfhunter/internal/sources"
	"github.com/cesargomez89/pdfhunter/internal/validate"
)

// maxBodyBytes caps request bodies; a full project DOI list fits well within it.
const maxBodyBytes = 4 << 20

type Handler struct {
	Projects  *app.ProjectService
	Batches   *app.BatchService
	Sources   *app.SourceService
	Validator *validate.Service
	Logger    *logger.Logger
}

func NewHandler(projects *app.ProjectService, batches *app.BatchService, srcs *app.SourceService, validator *validate.Service, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Default()
	}
	return &Handler{
		Projects:  projects,
		Batches:   batches,
		Sources:   srcs,
		Validator: validator,
		Logger:    log.WithComponent("http"),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.Health)

	r.Route("/projects", func(r chi.Router) {
		r.Get("/", h.ListProjects)
		r.Post("/", h.CreateProject)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetProject)
			r.Post("/download-pdfs", h.StartBatch)
			r.Get("/download-pdfs/status", h.BatchStatus)
			r.Post("/download-pdfs/reset", h.ResetBatch)
			r.Get("/attempts", h.ListAttempts)
			r.Get("/retry-queue", h.ListRetryQueue)
		})
	})

	r.Get("/sources", h.ListSources)
	r.Get("/sources/stats", h.SourceStats)
	r.Patch("/sources/{name}", h.UpdateSource)

	r.Post("/admin/performance/reset", h.ResetPerformance)
	r.Post("/admin/attempts/prune", h.PruneAttempts)

	r.Post("/dois/validate", h.ValidateDOIs)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// errorStatus maps service errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, app.ErrProjectNotFound),
		errors.Is(err, app.ErrBatchNotFound),
		errors.Is(err, sources.ErrSourceNotFound):
		return http.StatusNotFound
	case errors.Is(err, app.ErrBatchRunning),
		errors.Is(err, app.ErrNotStale):
		return http.StatusConflict
	case errors.Is(err, app.ErrInvalidInput),
		errors.Is(err, validate.ErrTooMany),
		errors.Is(err, acquire.ErrPermanentCategory):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := errorStatus(err)
	if code == http.StatusInternalServerError {
		h.Logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, code, "internal error")
		return
	}
	writeError(w, code, err.Error())
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func invalid(w http.ResponseWriter, errs []dto.ValidationError) bool {
	if len(errs) == 0 {
		return false
	}
	writeJSON(w, http.StatusBadRequest, map[string]interface{}{
		"error":  dto.ToResponse(errs),
		"fields": dto.ToMap(errs),
	})
	return true
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
