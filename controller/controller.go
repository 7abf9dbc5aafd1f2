/*
Package controller orchestrates the speedtracker operations: starting a test
for a profile, storing the results reported by a test runner callback, and
returning stored results.

Operations never return errors. Every outcome is a Response carrying an HTTP
status code and a JSON-serializable body.
*/
package controller

import (
	"context"
	"net/http"

	"github.com/evergreen-ci/speedtracker"
	"github.com/evergreen-ci/speedtracker/model"
	"github.com/evergreen-ci/speedtracker/util"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

// Response is the outcome of an operation.
type Response struct {
	StatusCode int
	Body       interface{}
}

// PingbackOptions are the parameters of a test runner callback.
type PingbackOptions struct {
	ID      string
	Key     string
	Profile string
}

// ResultsOptions select stored results. From and To are optional unix
// timestamps in base 10.
type ResultsOptions struct {
	Profile string
	From    string
	To      string
}

// Controller runs tests and manages their results.
type Controller struct {
	conf     *speedtracker.Configuration
	registry model.ProfileRegistry
	runner   model.TestRunner
	store    *model.DataStore
}

// New returns a Controller. The configuration must not be modified
// afterwards.
func New(conf *speedtracker.Configuration, runner model.TestRunner, db model.Database) (*Controller, error) {
	catcher := grip.NewBasicCatcher()
	catcher.NewWhen(conf == nil, "must specify a configuration")
	catcher.NewWhen(runner == nil, "must specify a test runner")
	catcher.NewWhen(db == nil, "must specify a database")
	if catcher.HasErrors() {
		return nil, catcher.Resolve()
	}

	return &Controller{
		conf:     conf,
		registry: conf.Registry(),
		runner:   runner,
		store:    model.NewDataStore(db),
	}, nil
}

// RunTest starts a test of the named profile.
func (c *Controller) RunTest(ctx context.Context, profile string) Response {
	params, err := model.ResolveTestParameters(model.ResolveOptions{
		ProfileName:       profile,
		Registry:          c.registry,
		DefaultProfileURL: c.conf.DefaultProfileURL,
		BaseURL:           c.conf.BaseURL,
		PingbackToken:     c.conf.PingbackToken(),
	})
	if err != nil {
		switch errors.Cause(err) {
		case model.ErrProfileNotFound:
			return errorResponse(notFoundError("Invalid profile"))
		case model.ErrMissingURL:
			return errorResponse(validationError("Missing parameter: url"))
		default:
			return errorResponse(errors.WithStack(err))
		}
	}

	ack, err := c.runner.RunTest(ctx, params.URL(), params)
	if err != nil {
		grip.Error(message.WrapError(err, message.Fields{
			"message": "problem starting test",
			"profile": profile,
			"url":     params.URL(),
		}))
		return errorResponse(upstreamError("Could not run test"))
	}

	grip.Info(message.Fields{
		"message": "test started",
		"profile": profile,
		"test_id": ack.Data.TestID,
	})

	return Response{StatusCode: http.StatusOK, Body: ack}
}

// ProcessResult fetches the results of a completed test and stores them
// under the profile.
func (c *Controller) ProcessResult(ctx context.Context, opts PingbackOptions) Response {
	if !model.AuthenticatePingback(c.conf.WPTAPIKey, opts.Key) {
		grip.Warning(message.Fields{
			"message": "rejected pingback",
			"profile": opts.Profile,
			"test_id": opts.ID,
		})
		return errorResponse(authError("Invalid key"))
	}
	if opts.ID == "" {
		return errorResponse(validationError("Missing parameter: id"))
	}
	if !c.registry.Has(opts.Profile) {
		return errorResponse(notFoundError("Invalid profile"))
	}

	doc, err := c.runner.GetTestResults(ctx, opts.ID)
	if err != nil {
		grip.Error(message.WrapError(err, message.Fields{
			"message": "problem getting test results",
			"profile": opts.Profile,
			"test_id": opts.ID,
		}))
		return errorResponse(upstreamError("Could not get results for test %s", opts.ID))
	}

	record, err := model.BuildResultRecord(doc)
	if err != nil {
		grip.Error(message.WrapError(err, message.Fields{
			"message": "problem processing test results",
			"profile": opts.Profile,
			"test_id": opts.ID,
		}))
		return errorResponse(transformError(opts.ID))
	}

	if err = c.store.Insert(ctx, opts.Profile, *record); err != nil {
		grip.Error(message.WrapError(err, message.Fields{
			"message": "problem storing test results",
			"profile": opts.Profile,
			"test_id": opts.ID,
		}))
		return errorResponse(storageError(err))
	}

	grip.Info(message.Fields{
		"message":   "stored test results",
		"profile":   opts.Profile,
		"test_id":   opts.ID,
		"timestamp": record.Timestamp,
	})

	return Response{StatusCode: http.StatusOK, Body: nil}
}

// GetResults returns the stored results of the profile, ordered by
// timestamp.
func (c *Controller) GetResults(ctx context.Context, opts ResultsOptions) Response {
	if opts.Profile == "" {
		return errorResponse(validationError("Missing parameter: profile"))
	}

	tr, err := util.GetTimeRange(opts.From, opts.To)
	if err != nil {
		bound := "from"
		if boundErr, ok := errors.Cause(err).(*util.InvalidBoundError); ok {
			bound = boundErr.Bound
		}
		return errorResponse(validationError("Invalid parameter: " + bound))
	}
	if !tr.IsValid() {
		return Response{StatusCode: http.StatusOK, Body: []model.ResultRecord{}}
	}

	results, err := c.store.Get(ctx, opts.Profile, tr)
	if err != nil {
		grip.Error(message.WrapError(err, message.Fields{
			"message": "problem getting stored results",
			"profile": opts.Profile,
		}))
		return errorResponse(storageError(err))
	}

	return Response{StatusCode: http.StatusOK, Body: results}
}
