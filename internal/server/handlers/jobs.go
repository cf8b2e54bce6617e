package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/vihaankulkarni29/NCBI-MetadataHarvester/internal/errors"
	"github.com/vihaankulkarni29/NCBI-MetadataHarvester/pkg/export"
	"github.com/vihaankulkarni29/NCBI-MetadataHarvester/pkg/jobstore"
)

// JobRunner executes a submitted job to completion. Satisfied by
// harvest.Pipeline; stubbed in tests.
type JobRunner interface {
	RunQueryJob(ctx context.Context, jobID string, input jobstore.Input)
	RunAccessionJob(ctx context.Context, jobID string, input jobstore.Input)
	EffectiveLimit(requested int) int
}

// Jobs serves the job submission and inspection endpoints.
type Jobs struct {
	store  *jobstore.Store
	runner JobRunner
	log    *zap.Logger

	// runCtx is the lifetime context for spawned job goroutines. Jobs
	// outlive their submitting request, so this is the server context,
	// not the request context.
	runCtx context.Context

	maxAccessions int
	defaultList   int
}

// NewJobs creates the job handler set.
func NewJobs(runCtx context.Context, store *jobstore.Store, runner JobRunner, log *zap.Logger) *Jobs {
	if log == nil {
		log = zap.NewNop()
	}
	return &Jobs{
		store:         store,
		runner:        runner,
		log:           log,
		runCtx:        runCtx,
		maxAccessions: 200,
		defaultList:   50,
	}
}

// Routes mounts the job endpoints on r under the current path.
func (h *Jobs) Routes(r chi.Router) {
	r.Get("/jobs", h.List)
	r.Post("/jobs/query", h.SubmitQuery)
	r.Post("/jobs/accessions", h.SubmitAccessions)
	r.Get("/jobs/{jobID}", h.Get)
	r.Get("/jobs/{jobID}/results", h.Results)
}

// jobLinks points clients at the result representations of a finished job.
type jobLinks struct {
	Results string `json:"results"`
	CSV     string `json:"results_csv"`
}

// jobView is the API representation of a job. Results are exposed only
// through the results endpoint to keep status polls small.
type jobView struct {
	ID          string            `json:"job_id"`
	Status      jobstore.Status   `json:"status"`
	Progress    jobstore.Progress `json:"progress"`
	SubmittedAt string            `json:"submitted_at"`
	UpdatedAt   string            `json:"updated_at"`
	Input       jobstore.Input    `json:"input"`
	Errors      []string          `json:"errors,omitempty"`
	Links       *jobLinks         `json:"links,omitempty"`
}

func viewOf(job jobstore.Job) jobView {
	v := jobView{
		ID:          job.ID,
		Status:      job.Status,
		Progress:    job.Progress,
		SubmittedAt: job.SubmittedAt.Format(time.RFC3339),
		UpdatedAt:   job.UpdatedAt.Format(time.RFC3339),
		Input:       job.Input,
		Errors:      job.Errors,
	}
	if job.Status == jobstore.StatusSucceeded {
		base := "/api/v1/jobs/" + job.ID + "/results"
		v.Links = &jobLinks{Results: base, CSV: base + "?format=csv"}
	}
	return v
}

// SubmitQuery accepts an organism query and spawns its pipeline run.
func (h *Jobs) SubmitQuery(w http.ResponseWriter, r *http.Request) {
	var input jobstore.Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		apperrors.WriteError(w, http.StatusBadRequest, apperrors.CodeBadRequest,
			fmt.Sprintf("invalid request body: %v", err))
		return
	}

	if strings.TrimSpace(input.Organism) == "" {
		apperrors.WriteError(w, http.StatusBadRequest, apperrors.CodeValidation,
			"organism is required")
		return
	}
	if len(input.Accessions) > 0 {
		apperrors.WriteError(w, http.StatusBadRequest, apperrors.CodeValidation,
			"accessions are not accepted on the query endpoint")
		return
	}
	if input.Limit < 0 {
		apperrors.WriteError(w, http.StatusBadRequest, apperrors.CodeValidation,
			"limit must be positive")
		return
	}
	if h.runner == nil {
		respondWithError(w, r, fmt.Errorf("job runner not configured"))
		return
	}

	// Provisional total; the pipeline recomputes it once the
	// post-filter count is known.
	job := h.store.Create(input, h.runner.EffectiveLimit(input.Limit))
	go h.runner.RunQueryJob(h.runCtx, job.ID, input)

	h.log.Info("query job accepted",
		zap.String("job_id", job.ID),
		zap.String("organism", input.Organism))
	writeJSON(w, http.StatusAccepted, viewOf(job))
}

// SubmitAccessions accepts an accession list and spawns its pipeline run.
func (h *Jobs) SubmitAccessions(w http.ResponseWriter, r *http.Request) {
	var input jobstore.Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		apperrors.WriteError(w, http.StatusBadRequest, apperrors.CodeBadRequest,
			fmt.Sprintf("invalid request body: %v", err))
		return
	}

	if len(input.Accessions) == 0 {
		apperrors.WriteError(w, http.StatusBadRequest, apperrors.CodeValidation,
			"accessions list is required")
		return
	}
	if len(input.Accessions) > h.maxAccessions {
		apperrors.WriteError(w, http.StatusBadRequest, apperrors.CodeValidation,
			fmt.Sprintf("too many accessions: %d (max %d)", len(input.Accessions), h.maxAccessions))
		return
	}
	if input.Organism != "" {
		apperrors.WriteError(w, http.StatusBadRequest, apperrors.CodeValidation,
			"organism is not accepted on the accessions endpoint")
		return
	}
	if h.runner == nil {
		respondWithError(w, r, fmt.Errorf("job runner not configured"))
		return
	}

	job := h.store.Create(input, len(input.Accessions))
	go h.runner.RunAccessionJob(h.runCtx, job.ID, input)

	h.log.Info("accession job accepted",
		zap.String("job_id", job.ID),
		zap.Int("accessions", len(input.Accessions)))
	writeJSON(w, http.StatusAccepted, viewOf(job))
}

// Get returns the status view of one job.
func (h *Jobs) Get(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job, ok := h.store.Get(jobID)
	if !ok {
		apperrors.WriteError(w, http.StatusNotFound, apperrors.CodeNotFound,
			fmt.Sprintf("job not found: %s", jobID))
		return
	}
	writeJSON(w, http.StatusOK, viewOf(job))
}

// resultsResponse is the JSON results payload of a succeeded job.
type resultsResponse struct {
	JobID   string            `json:"job_id"`
	Results []jobstore.Result `json:"results"`
	Errors  []string          `json:"errors"`
}

// Results returns the records of a succeeded job as JSON or CSV.
func (h *Jobs) Results(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job, ok := h.store.Get(jobID)
	if !ok {
		apperrors.WriteError(w, http.StatusNotFound, apperrors.CodeNotFound,
			fmt.Sprintf("job not found: %s", jobID))
		return
	}

	if job.Status != jobstore.StatusSucceeded {
		apperrors.WriteError(w, http.StatusBadRequest, apperrors.CodeConflict,
			fmt.Sprintf("job %s is %s; results are available once it has succeeded", jobID, job.Status))
		return
	}

	format := r.URL.Query().Get("format")
	switch format {
	case "", "json":
		writeJSON(w, http.StatusOK, resultsResponse{
			JobID:   job.ID,
			Results: job.Results,
			Errors:  job.Errors,
		})
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", job.ID+".csv"))
		if err := export.WriteCSV(w, job.Results); err != nil {
			h.log.Error("csv export failed", zap.String("job_id", jobID), zap.Error(err))
		}
	default:
		apperrors.WriteError(w, http.StatusBadRequest, apperrors.CodeBadRequest,
			fmt.Sprintf("unsupported format: %s", format))
	}
}

// List returns recent jobs, newest first.
func (h *Jobs) List(w http.ResponseWriter, r *http.Request) {
	limit := h.defaultList
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			apperrors.WriteError(w, http.StatusBadRequest, apperrors.CodeBadRequest,
				fmt.Sprintf("invalid limit: %s", raw))
			return
		}
		limit = n
	}

	jobs := h.store.List(limit)
	views := make([]jobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, viewOf(job))
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": views})
}
