package api

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/beenjammin/basgra/internal/domain/model"
	"github.com/beenjammin/basgra/internal/domain/schema"
)

// maxBodyBytes bounds a submission. A full-capacity weather table of 36600
// rows fits comfortably.
const maxBodyBytes = 64 << 20

// simulationRequest is the body of POST /simulations. Null parameter
// values and null table cells arrive as NaN so the validator can name them.
type simulationRequest struct {
	RequestID   string              `json:"request_id"`
	Params      map[string]*float64 `json:"params"`
	Weather     *model.Frame        `json:"weather"`
	Harvest     *model.Frame        `json:"harvest"`
	Irrigation  []int               `json:"irrigation_days"`
	SupplyPET   *bool               `json:"supply_pet"`
	AutoHarvest bool                `json:"auto_harvest"`
	Verbose     bool                `json:"verbose"`
}

func (r simulationRequest) toModel() *model.Request {
	params := make(map[string]float64, len(r.Params))
	for k, v := range r.Params {
		if v == nil {
			params[k] = math.NaN()
			continue
		}
		params[k] = *v
	}
	pet := schema.SuppliedPET
	if r.SupplyPET != nil && !*r.SupplyPET {
		pet = schema.DerivedPET
	}
	hm := schema.ManualHarvest
	if r.AutoHarvest {
		hm = schema.AutoHarvest
	}
	irr := r.Irrigation
	if irr == nil {
		irr = []int{}
	}
	return &model.Request{
		RequestID:   r.RequestID,
		Params:      params,
		Weather:     r.Weather,
		Harvest:     r.Harvest,
		Irrigation:  irr,
		PETMode:     pet,
		HarvestMode: hm,
		Verbose:     r.Verbose,
	}
}

type ackResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type outputResponse struct {
	Columns []string    `json:"columns"`
	Dates   []string    `json:"dates"`
	Rows    [][]float64 `json:"rows"`
}

type jobResponse struct {
	ID          string          `json:"id"`
	RequestID   string          `json:"request_id,omitempty"`
	Status      string          `json:"status"`
	SubmittedAt time.Time       `json:"submitted_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	FinishedAt  *time.Time      `json:"finished_at,omitempty"`
	Error       *errorResponse  `json:"error,omitempty"`
	Output      *outputResponse `json:"output,omitempty"`
}

func newJobResponse(j model.Job) jobResponse {
	resp := jobResponse{
		ID:          j.ID,
		RequestID:   j.RequestID,
		Status:      string(j.Status),
		SubmittedAt: j.SubmittedAt,
	}
	if !j.StartedAt.IsZero() {
		t := j.StartedAt
		resp.StartedAt = &t
	}
	if !j.FinishedAt.IsZero() {
		t := j.FinishedAt
		resp.FinishedAt = &t
	}
	if j.Status == model.JobFailed {
		resp.Error = &errorResponse{Code: j.ErrorKind, Message: j.Error, Check: j.Check}
	}
	if o := j.Output; o != nil {
		dates := make([]string, len(o.Dates))
		for i, d := range o.Dates {
			dates[i] = d.Format(time.DateOnly)
		}
		resp.Output = &outputResponse{Columns: o.Columns, Dates: dates, Rows: o.Rows}
	}
	return resp
}

// SimulationsHandler handles simulation job requests.
type SimulationsHandler struct {
	deps Dependencies
}

// NewSimulationsHandler creates a new simulations handler.
func NewSimulationsHandler(deps Dependencies) *SimulationsHandler {
	return &SimulationsHandler{deps: deps}
}

// HandlePostSimulation handles POST /simulations. Validation runs before
// the job is queued, so bad input is reported on this request.
func (h *SimulationsHandler) HandlePostSimulation(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var body simulationRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeServiceError(w, fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}

	job, created, err := h.deps.Submit(r.Context(), body.toModel())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Location", "/simulations/"+job.ID)
	if !created {
		writeJSON(w, http.StatusOK, ackResponse{ID: job.ID, Status: string(job.Status), Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{ID: job.ID, Status: string(job.Status)})
}

// HandleGetSimulation handles GET /simulations/{id}.
func (h *SimulationsHandler) HandleGetSimulation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeServiceError(w, fmt.Errorf("%w: missing job id", ErrBadRequest))
		return
	}
	job, err := h.deps.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newJobResponse(job))
}
