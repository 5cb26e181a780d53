package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/beenjammin/basgra/internal/adapters/http/api"
	"github.com/beenjammin/basgra/internal/adapters/repository"
	service "github.com/beenjammin/basgra/internal/app"
	"github.com/beenjammin/basgra/internal/domain/model"
	"github.com/beenjammin/basgra/internal/domain/schema"
	"github.com/beenjammin/basgra/internal/domain/simerr"
)

// Mock implementations for testing
type mockDependencies struct {
	submitted *model.Request
	submitErr error
	existing  bool
	jobs      map[string]model.Job
}

func (m *mockDependencies) Submit(_ context.Context, req *model.Request) (model.Job, bool, error) {
	m.submitted = req
	if m.submitErr != nil {
		return model.Job{}, false, m.submitErr
	}
	return model.Job{ID: "job-1", Status: model.JobQueued}, !m.existing, nil
}

func (m *mockDependencies) Get(_ context.Context, id string) (model.Job, error) {
	j, ok := m.jobs[id]
	if !ok {
		return model.Job{}, repository.ErrNotFound
	}
	return j, nil
}

type mockStatsProvider struct {
	stats service.Stats
}

func (m *mockStatsProvider) GetStats(context.Context) service.Stats {
	return m.stats
}

func newMux(deps *mockDependencies) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, &mockStatsProvider{stats: service.Stats{Started: true, Workers: 2, Capacity: 36600}}).Register(mux)
	return mux
}

func serve(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
	return out
}

const validBody = `{
	"request_id": "req-1",
	"params": {"LAT": -43.6, "TBASE": null},
	"weather": {"columns": ["year", "doy", "rain"], "rows": [[2011, 1, 0.5], [2011, 2, null]]},
	"harvest": {"columns": ["year", "doy"], "rows": []},
	"irrigation_days": [1, 2],
	"supply_pet": false,
	"auto_harvest": true,
	"verbose": true
}`

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("Then the health endpoint serves Prometheus metrics", func() {
			w := serve(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "basgra_sim_queue_capacity")
		})

		Convey("Then the stats endpoint serves the service snapshot", func() {
			w := serve(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body["started"], ShouldEqual, true)
			So(body["weather_capacity"], ShouldEqual, 36600.0)
		})

		Convey("Then unknown paths are not found", func() {
			w := serve(mux, http.MethodGet, "/unknown", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then POST on the stats endpoint is not found", func() {
			w := serve(mux, http.MethodPost, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestPostSimulation(t *testing.T) {
	Convey("Given a simulations endpoint", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When a new request is posted", func() {
			w := serve(mux, http.MethodPost, "/simulations", validBody)

			Convey("Then it is accepted with the job id", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(w.Header().Get("Location"), ShouldEqual, "/simulations/job-1")
				body := decode(w)
				So(body["id"], ShouldEqual, "job-1")
				So(body["status"], ShouldEqual, "queued")
				So(body["duplicate"], ShouldEqual, false)
			})

			Convey("Then the body is converted to a request", func() {
				req := deps.submitted
				So(req.RequestID, ShouldEqual, "req-1")
				So(req.PETMode, ShouldEqual, schema.DerivedPET)
				So(req.HarvestMode, ShouldEqual, schema.AutoHarvest)
				So(req.Verbose, ShouldBeTrue)
				So(req.Irrigation, ShouldResemble, []int{1, 2})
				So(req.Params["LAT"], ShouldEqual, -43.6)
				So(math.IsNaN(req.Params["TBASE"]), ShouldBeTrue)
				So(math.IsNaN(req.Weather.Rows[1][2]), ShouldBeTrue)
			})
		})

		Convey("When the mode flags are omitted", func() {
			w := serve(mux, http.MethodPost, "/simulations", `{"params": {}}`)
			So(w.Code, ShouldEqual, http.StatusAccepted)

			Convey("Then supplied PET and manual harvest are assumed", func() {
				So(deps.submitted.PETMode, ShouldEqual, schema.SuppliedPET)
				So(deps.submitted.HarvestMode, ShouldEqual, schema.ManualHarvest)
				So(deps.submitted.Irrigation, ShouldResemble, []int{})
			})
		})

		Convey("When the request id is already known", func() {
			deps.existing = true
			w := serve(mux, http.MethodPost, "/simulations", validBody)

			Convey("Then the existing job is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w)["duplicate"], ShouldEqual, true)
			})
		})

		Convey("When the body is not JSON", func() {
			w := serve(mux, http.MethodPost, "/simulations", `{`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "bad_request")
		})

		Convey("When the body has an unknown field", func() {
			w := serve(mux, http.MethodPost, "/simulations", `{"talent_id": "x"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestPostSimulationErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"a schema error", simerr.New(simerr.ErrSchema, "weather.keys", "pet", "missing column"), http.StatusBadRequest, "schema"},
		{"a parameter error", simerr.New(simerr.ErrConfiguration, "params.keys", "LAT", "missing"), http.StatusBadRequest, "configuration"},
		{"a continuity error", simerr.AtRow(simerr.ErrContinuity, "weather.contiguity", "", 3, "gap"), http.StatusUnprocessableEntity, "continuity"},
		{"a range error", simerr.AtRow(simerr.ErrRange, "harvest.frac_harv", "frac_harv", 0, "1.5"), http.StatusUnprocessableEntity, "range"},
		{"a missing engine", simerr.New(simerr.ErrEnvironment, "engine.mode", "", "no penman engine"), http.StatusServiceUnavailable, "environment"},
		{"a full queue", fmt.Errorf("%w: queue full", service.ErrBusy), http.StatusTooManyRequests, "backpressure"},
		{"a stopped service", service.ErrNotStarted, http.StatusServiceUnavailable, "unavailable"},
		{"an unexpected failure", fmt.Errorf("boom"), http.StatusInternalServerError, "internal"},
	}

	Convey("Given submissions the service refuses", t, func() {
		for _, tc := range cases {
			Convey("When the service reports "+tc.name, func() {
				mux := newMux(&mockDependencies{submitErr: tc.err})
				w := serve(mux, http.MethodPost, "/simulations", validBody)

				Convey("Then the status and code follow the error kind", func() {
					So(w.Code, ShouldEqual, tc.status)
					So(decode(w)["code"], ShouldEqual, tc.code)
				})
			})
		}

		Convey("When a check names a row", func() {
			err := simerr.AtRow(simerr.ErrContinuity, "weather.contiguity", "doy", 0, "expected 2011-002, got 2011-003")
			mux := newMux(&mockDependencies{submitErr: err})
			body := decode(serve(mux, http.MethodPost, "/simulations", validBody))

			Convey("Then the response carries the check, field and row", func() {
				So(body["check"], ShouldEqual, "weather.contiguity")
				So(body["field"], ShouldEqual, "doy")
				So(body["row"], ShouldEqual, 0.0)
				So(body["message"], ShouldContainSubstring, "expected 2011-002")
			})
		})
	})
}

func TestGetSimulation(t *testing.T) {
	Convey("Given stored jobs", t, func() {
		submitted := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		deps := &mockDependencies{jobs: map[string]model.Job{
			"done": {
				ID: "done", RequestID: "req-1", Status: model.JobSucceeded,
				SubmittedAt: submitted, StartedAt: submitted.Add(time.Second), FinishedAt: submitted.Add(2 * time.Second),
				Output: &model.SimulationOutput{
					Columns: []string{"year", "doy"},
					Dates:   []time.Time{time.Date(2012, time.December, 31, 0, 0, 0, 0, time.UTC)},
					Rows:    [][]float64{{2012, 366}},
				},
			},
			"failed": {
				ID: "failed", Status: model.JobFailed, SubmittedAt: submitted,
				Error: "engine fault: output.finite", ErrorKind: "engine_fault", Check: "output.finite",
			},
			"queued": {ID: "queued", Status: model.JobQueued, SubmittedAt: submitted},
		}}
		mux := newMux(deps)

		Convey("When fetching a finished job", func() {
			w := serve(mux, http.MethodGet, "/simulations/done", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)

			Convey("Then the output table is returned with ISO dates", func() {
				So(body["status"], ShouldEqual, "succeeded")
				out := body["output"].(map[string]any)
				So(out["dates"], ShouldResemble, []any{"2012-12-31"})
				So(out["columns"], ShouldResemble, []any{"year", "doy"})
				So(body["finished_at"], ShouldEqual, "2024-05-01T12:00:02Z")
				So(body, ShouldNotContainKey, "error")
			})
		})

		Convey("When fetching a failed job", func() {
			body := decode(serve(mux, http.MethodGet, "/simulations/failed", ""))

			Convey("Then the error is reported and there is no output", func() {
				e := body["error"].(map[string]any)
				So(e["code"], ShouldEqual, "engine_fault")
				So(e["check"], ShouldEqual, "output.finite")
				So(body, ShouldNotContainKey, "output")
			})
		})

		Convey("When fetching a queued job", func() {
			body := decode(serve(mux, http.MethodGet, "/simulations/queued", ""))
			So(body["status"], ShouldEqual, "queued")
			So(body, ShouldNotContainKey, "started_at")
		})

		Convey("When fetching an unknown job", func() {
			w := serve(mux, http.MethodGet, "/simulations/missing", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decode(w)["code"], ShouldEqual, "not_found")
		})
	})
}
