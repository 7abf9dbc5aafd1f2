/*
Package wpt is a client for the WebPageTest HTTP API. It implements
model.TestRunner.
*/
package wpt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/evergreen-ci/speedtracker/model"
	"github.com/evergreen-ci/utility"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

// DefaultHost is the public WebPageTest instance.
const DefaultHost = "https://www.webpagetest.org"

const (
	runTestPath    = "runtest.php"
	testResultPath = "jsonResult.php"

	statusComplete = 200
)

// queryNames translates parameter names to WebPageTest query parameters.
// Names not listed are passed through unchanged.
var queryNames = map[string]string{
	model.ParamFirstViewOnly: "fvonly",
	model.ParamConnectivity:  "connectivity",
	model.ParamRuns:          "runs",
	model.ParamVideo:         "video",
	model.ParamPingback:      "pingback",
	model.ParamLighthouse:    "lighthouse",
	"location":               "location",
	"label":                  "label",
	"private":                "private",
	"timeline":               "timeline",
	"mobile":                 "mobile",
	"block":                  "block",
	"script":                 "script",
}

// Client provides access to a WebPageTest instance.
type Client struct {
	host    string
	apiKey  string
	client  *http.Client
	release bool
}

// NewClient returns a client for the instance at host. When httpClient is
// nil, a pooled client is used and Close must be called to return it.
func NewClient(host, apiKey string, httpClient *http.Client) (*Client, error) {
	if host == "" {
		host = DefaultHost
	}
	if !strings.HasPrefix(host, "http") {
		return nil, errors.Errorf("host '%s' is malformed. must start with 'http'", host)
	}

	c := &Client{
		host:   strings.TrimSuffix(host, "/"),
		apiKey: apiKey,
		client: httpClient,
	}
	if c.client == nil {
		c.client = utility.GetHTTPClient()
		c.release = true
	}

	return c, nil
}

// Host returns the base url of the instance.
func (c *Client) Host() string { return c.host }

// Close releases the pooled http client, if any.
func (c *Client) Close() {
	if c.release && c.client != nil {
		utility.PutHTTPClient(c.client)
		c.client = nil
	}
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	StatusText string          `json:"statusText"`
	Data       json.RawMessage `json:"data"`
}

// RunTest starts a test of targetURL. The acknowledgement carries the id of
// the new test; results are reported to the pingback parameter.
func (c *Client) RunTest(ctx context.Context, targetURL string, params model.TestParameters) (*model.RunAcknowledgement, error) {
	q := encodeParameters(params)
	q.Set(model.ParamURL, targetURL)
	q.Set("f", "json")
	if c.apiKey != "" {
		q.Set("k", c.apiKey)
	}

	env, err := c.get(ctx, runTestPath, q)
	if err != nil {
		return nil, errors.Wrapf(err, "problem starting test for '%s'", targetURL)
	}
	if env.StatusCode != statusComplete {
		return nil, errors.Errorf("test runner rejected test for '%s' [%d]: %s", targetURL, env.StatusCode, env.StatusText)
	}

	ack := &model.RunAcknowledgement{StatusCode: env.StatusCode, StatusText: env.StatusText}
	if err = json.Unmarshal(env.Data, &ack.Data); err != nil {
		return nil, errors.Wrap(err, "problem decoding test acknowledgement")
	}

	grip.Info(message.Fields{
		"message": "started test",
		"test_id": ack.Data.TestID,
		"url":     targetURL,
	})

	return ack, nil
}

// GetTestResults fetches the result document of a completed test.
func (c *Client) GetTestResults(ctx context.Context, id string) (*model.TestResultDocument, error) {
	if id == "" {
		return nil, errors.New("must specify a test id")
	}

	q := url.Values{}
	q.Set("test", id)
	q.Set("breakdown", "1")

	env, err := c.get(ctx, testResultPath, q)
	if err != nil {
		return nil, errors.Wrapf(err, "problem getting results for test '%s'", id)
	}
	if env.StatusCode != statusComplete {
		return nil, errors.Errorf("results for test '%s' are not available [%d]: %s", id, env.StatusCode, env.StatusText)
	}

	doc := &model.TestResultDocument{}
	if err = json.Unmarshal(env.Data, doc); err != nil {
		return nil, errors.Wrapf(err, "problem decoding results for test '%s'", id)
	}

	return doc, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) (*envelope, error) {
	if c.client == nil {
		return nil, errors.New("client is closed")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s?%s", c.host, path, q.Encode()), nil)
	if err != nil {
		return nil, errors.Wrap(err, "problem building request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "problem making request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.Errorf("unexpected response from '%s' [%s]: %s", path, resp.Status, strings.TrimSpace(string(body)))
	}

	env := &envelope{}
	if err = json.NewDecoder(resp.Body).Decode(env); err != nil {
		return nil, errors.Wrapf(err, "problem decoding response from '%s'", path)
	}

	return env, nil
}

func encodeParameters(params model.TestParameters) url.Values {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	q := url.Values{}
	for _, key := range keys {
		if key == model.ParamURL || params[key] == nil {
			continue
		}

		name, ok := queryNames[key]
		if !ok {
			name = key
		}
		q.Set(name, formatValue(params[key]))
	}

	return q
}

func formatValue(val interface{}) string {
	switch v := val.(type) {
	case bool:
		if v {
			return "1"
		}
		return "0"
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
