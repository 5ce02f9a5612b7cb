package httpapp

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cesargomez89/pdfhunter/internal/app"
	"github.com/cesargomez89/pdfhunter/internal/constants"
	"github.com/cesargomez89/pdfhunter/internal/http/dto"
)

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateProjectRequest
	if !decode(w, r, &req) || invalid(w, req.Validate()) {
		return
	}
	p, err := h.Projects.Create(r.Context(), req.Name, req.DOIs)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Projects.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.Projects.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) StartBatch(w http.ResponseWriter, r *http.Request) {
	var req dto.StartBatchRequest
	if !decode(w, r, &req) {
		return
	}
	// The batch outlives this request, so only the setup uses its context.
	p, err := h.Batches.Start(r.Context(), chi.URLParam(r, "id"), req.ForceRestart)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, p)
}

func (h *Handler) BatchStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.Batches.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) ResetBatch(w http.ResponseWriter, r *http.Request) {
	st, err := h.Batches.Reset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) ListAttempts(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", constants.DefaultAttemptLimit)
	attempts, err := h.Projects.Attempts(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, attempts)
}

func (h *Handler) ListRetryQueue(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Projects.RetryQueue(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) ListSources(w http.ResponseWriter, r *http.Request) {
	views, err := h.Sources.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) UpdateSource(w http.ResponseWriter, r *http.Request) {
	var req dto.SourceUpdateRequest
	if !decode(w, r, &req) || invalid(w, req.Validate()) {
		return
	}
	src, err := h.Sources.Update(r.Context(), chi.URLParam(r, "name"), app.SourceUpdate{
		Enabled:  req.Enabled,
		Priority: req.Priority,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, src)
}

func (h *Handler) SourceStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Sources.Stats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) ResetPerformance(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetPerformanceRequest
	if !decode(w, r, &req) {
		return
	}
	n, err := h.Sources.ResetPerformance(r.Context(), req.Source)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"source": req.Source, "reset": n})
}

func (h *Handler) PruneAttempts(w http.ResponseWriter, r *http.Request) {
	var req dto.PruneAttemptsRequest
	if !decode(w, r, &req) || invalid(w, req.Validate()) {
		return
	}
	n, err := h.Sources.PruneAttempts(r.Context(), req.OlderThanDays)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"older_than_days": req.OlderThanDays, "deleted": n})
}

func (h *Handler) ValidateDOIs(w http.ResponseWriter, r *http.Request) {
	var req dto.ValidateDOIsRequest
	if !decode(w, r, &req) || invalid(w, req.Validate()) {
		return
	}
	res, err := h.Validator.Validate(r.Context(), req.DOIs)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
