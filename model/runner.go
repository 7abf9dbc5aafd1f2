package model

import "context"

// TestRunner starts remote page-speed tests and fetches their results.
// Completion of a started test is signaled out of band, through the
// pingback url in its parameters.
type TestRunner interface {
	RunTest(ctx context.Context, url string, params TestParameters) (*RunAcknowledgement, error)
	GetTestResults(ctx context.Context, id string) (*TestResultDocument, error)
}

// RunAcknowledgement is the test runner's response to a started test.
type RunAcknowledgement struct {
	StatusCode int                    `json:"statusCode"`
	StatusText string                 `json:"statusText"`
	Data       RunAcknowledgementData `json:"data"`
}

// RunAcknowledgementData identifies the started test.
type RunAcknowledgementData struct {
	TestID     string `json:"testId"`
	OwnerKey   string `json:"ownerKey,omitempty"`
	JSONURL    string `json:"jsonUrl,omitempty"`
	XMLURL     string `json:"xmlUrl,omitempty"`
	UserURL    string `json:"userUrl,omitempty"`
	SummaryCSV string `json:"summaryCSV,omitempty"`
	DetailCSV  string `json:"detailCSV,omitempty"`
}
