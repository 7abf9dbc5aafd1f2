package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/evergreen-ci/gimlet"
	"github.com/evergreen-ci/speedtracker"
	"github.com/evergreen-ci/speedtracker/controller"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
)

const (
	runTestOperation       = "run_test"
	processResultOperation = "process_result"
	getResultsOperation    = "get_results"
)

////////////////////////////////////////////////////////////////////////
//
// GET /status

type StatusResponse struct {
	Revision string `json:"revision"`
}

func (s *Service) statusHandler(w http.ResponseWriter, r *http.Request) {
	gimlet.WriteJSON(w, &StatusResponse{Revision: speedtracker.BuildRevision})
}

////////////////////////////////////////////////////////////////////////
//
// GET /test?profile=<name>

type runTestHandler struct {
	profile string
	start   time.Time
	svc     *Service
}

func makeRunTest(svc *Service) gimlet.RouteHandler {
	return &runTestHandler{svc: svc}
}

// Factory returns a pointer to a new runTestHandler.
func (h *runTestHandler) Factory() gimlet.RouteHandler {
	return &runTestHandler{svc: h.svc}
}

// Parse fetches the profile name from the query string.
func (h *runTestHandler) Parse(_ context.Context, r *http.Request) error {
	h.start = time.Now()
	h.profile = r.URL.Query().Get("profile")
	return nil
}

// Run starts a test of the profile and returns the runner's acknowledgement.
func (h *runTestHandler) Run(ctx context.Context) gimlet.Responder {
	return h.svc.respond(ctx, runTestOperation, h.start, h.svc.controller.RunTest(ctx, h.profile))
}

////////////////////////////////////////////////////////////////////////
//
// GET /pingback?id=<test>&key=<token>&profile=<name>

type processResultHandler struct {
	opts  controller.PingbackOptions
	start time.Time
	svc   *Service
}

func makeProcessResult(svc *Service) gimlet.RouteHandler {
	return &processResultHandler{svc: svc}
}

// Factory returns a pointer to a new processResultHandler.
func (h *processResultHandler) Factory() gimlet.RouteHandler {
	return &processResultHandler{svc: h.svc}
}

// Parse fetches the test id, key and profile from the query string.
func (h *processResultHandler) Parse(_ context.Context, r *http.Request) error {
	h.start = time.Now()
	q := r.URL.Query()
	h.opts = controller.PingbackOptions{
		ID:      q.Get("id"),
		Key:     q.Get("key"),
		Profile: q.Get("profile"),
	}
	return nil
}

// Run fetches, transforms and stores the results of the completed test.
func (h *processResultHandler) Run(ctx context.Context) gimlet.Responder {
	return h.svc.respond(ctx, processResultOperation, h.start, h.svc.controller.ProcessResult(ctx, h.opts))
}

////////////////////////////////////////////////////////////////////////
//
// GET /results?profile=<name>&from=<unix>&to=<unix>

type getResultsHandler struct {
	opts  controller.ResultsOptions
	start time.Time
	svc   *Service
}

func makeGetResults(svc *Service) gimlet.RouteHandler {
	return &getResultsHandler{svc: svc}
}

// Factory returns a pointer to a new getResultsHandler.
func (h *getResultsHandler) Factory() gimlet.RouteHandler {
	return &getResultsHandler{svc: h.svc}
}

// Parse fetches the profile and time range bounds from the query string.
func (h *getResultsHandler) Parse(_ context.Context, r *http.Request) error {
	h.start = time.Now()
	q := r.URL.Query()
	h.opts = controller.ResultsOptions{
		Profile: q.Get("profile"),
		From:    q.Get("from"),
		To:      q.Get("to"),
	}
	return nil
}

// Run returns the stored results of the profile within the time range.
func (h *getResultsHandler) Run(ctx context.Context) gimlet.Responder {
	return h.svc.respond(ctx, getResultsOperation, h.start, h.svc.controller.GetResults(ctx, h.opts))
}

// respond records the outcome of an operation and converts it into a JSON
// responder carrying the operation's status code.
func (s *Service) respond(ctx context.Context, op string, start time.Time, resp controller.Response) gimlet.Responder {
	elapsed := time.Since(start)
	s.metrics.observe(op, resp.StatusCode, elapsed)

	grip.Debug(message.Fields{
		"message":     "handled request",
		"request":     gimlet.GetRequestID(ctx),
		"operation":   op,
		"status":      resp.StatusCode,
		"duration_ms": elapsed.Milliseconds(),
	})

	out := gimlet.NewJSONResponse(resp.Body)
	if err := out.SetStatus(resp.StatusCode); err != nil {
		grip.Error(message.WrapError(err, message.Fields{
			"message":   "problem setting response status",
			"operation": op,
			"status":    resp.StatusCode,
		}))
		return gimlet.MakeJSONInternalErrorResponder(err)
	}

	return out
}
