package model

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestResultDocument(t *testing.T) *TestResultDocument {
	data, err := os.ReadFile(filepath.Join("testdata", "wpt_result.json"))
	require.NoError(t, err)

	envelope := struct {
		Data *TestResultDocument `json:"data"`
	}{}
	require.NoError(t, json.Unmarshal(data, &envelope))
	require.NotNil(t, envelope.Data)

	return envelope.Data
}

func TestBuildResultRecord(t *testing.T) {
	t.Run("MapsDocument", func(t *testing.T) {
		record, err := BuildResultRecord(loadTestResultDocument(t))
		require.NoError(t, err)

		assert.Equal(t, "181015_AB_1C", record.ID)
		assert.EqualValues(t, 1539600000, record.Timestamp)
		assert.Equal(t, record.Timestamp, record.Date)

		assert.Equal(t, 2100.5, record.LoadTime)
		assert.Equal(t, 310.0, record.TTFB)
		assert.Equal(t, 1200.0, record.DOMInteractive)
		assert.Equal(t, 812.0, record.DOMElements)
		assert.Equal(t, 640.0, record.FirstPaint)
		assert.Equal(t, 3400.0, record.FullyLoaded)
		assert.Equal(t, 700.0, record.Render)
		assert.Equal(t, 1450.0, record.SpeedIndex)
		assert.Equal(t, 1800.0, record.VisualComplete)

		require.NotNil(t, record.Lighthouse)
		assert.Equal(t, 45, *record.Lighthouse)

		assert.Equal(t, ResourceCount{Bytes: 10240, Requests: 2}, record.Breakdown.CSS)
		assert.Equal(t, ResourceCount{}, record.Breakdown.Flash)
		assert.Equal(t, ResourceCount{Bytes: 48000, Requests: 3}, record.Breakdown.Font)
		assert.Equal(t, ResourceCount{Bytes: 15000, Requests: 1}, record.Breakdown.HTML)
		assert.Equal(t, ResourceCount{Bytes: 250000, Requests: 12}, record.Breakdown.Image)
		assert.Equal(t, ResourceCount{Bytes: 180000, Requests: 8}, record.Breakdown.JS)
		assert.Equal(t, ResourceCount{Bytes: 1200, Requests: 1}, record.Breakdown.Other)
		assert.Equal(t, ResourceCount{}, record.Breakdown.Video)

		assert.Equal(t, []VideoFrame{
			{Image: "frame_0000.jpg", Time: 0, VisuallyComplete: 0},
			{Image: "frame_0009.jpg", Time: 900, VisuallyComplete: 45},
			{Image: "frame_0018.jpg", Time: 1800, VisuallyComplete: 100},
		}, record.VideoFrames)

		assert.NoError(t, record.Validate())
	})
	t.Run("LighthouseScore", func(t *testing.T) {
		for name, test := range map[string]struct {
			score    *float64
			expected *int
		}{
			"Absent":  {},
			"Zero":    {score: float64Ptr(0), expected: intPtr(0)},
			"Half":    {score: float64Ptr(0.5), expected: intPtr(50)},
			"Full":    {score: float64Ptr(1), expected: intPtr(100)},
			"Floored": {score: float64Ptr(0.999), expected: intPtr(99)},
		} {
			t.Run(name, func(t *testing.T) {
				doc := loadTestResultDocument(t)
				doc.Average.FirstView.LighthouseScore = test.score

				record, err := BuildResultRecord(doc)
				require.NoError(t, err)
				assert.Equal(t, test.expected, record.Lighthouse)
			})
		}
	})
	t.Run("NullLighthouseIsSerialized", func(t *testing.T) {
		doc := loadTestResultDocument(t)
		doc.Average.FirstView.LighthouseScore = nil

		record, err := BuildResultRecord(doc)
		require.NoError(t, err)

		out, err := json.Marshal(record)
		require.NoError(t, err)
		assert.Contains(t, string(out), `"lighthouse":null`)
	})
	t.Run("EmptyVideoFrames", func(t *testing.T) {
		doc := loadTestResultDocument(t)
		doc.Runs[ResultRunKey].FirstView.VideoFrames = []RawVideoFrame{}

		record, err := BuildResultRecord(doc)
		require.NoError(t, err)
		assert.NotNil(t, record.VideoFrames)
		assert.Empty(t, record.VideoFrames)
	})
	t.Run("FrameWithoutFile", func(t *testing.T) {
		doc := loadTestResultDocument(t)
		doc.Runs[ResultRunKey].FirstView.VideoFrames = []RawVideoFrame{{Time: 100, Image: "/thumbnail.php?test=abc", VisuallyComplete: 10}}

		record, err := BuildResultRecord(doc)
		require.NoError(t, err)
		require.Len(t, record.VideoFrames, 1)
		assert.Equal(t, "", record.VideoFrames[0].Image)
		assert.EqualValues(t, 100, record.VideoFrames[0].Time)
	})
	t.Run("MalformedDocuments", func(t *testing.T) {
		for name, mutate := range map[string]func(*TestResultDocument){
			"NoAverage":             func(doc *TestResultDocument) { doc.Average = nil },
			"NoAverageFirstView":    func(doc *TestResultDocument) { doc.Average.FirstView = nil },
			"NoRuns":                func(doc *TestResultDocument) { doc.Runs = nil },
			"NoFirstRun":            func(doc *TestResultDocument) { delete(doc.Runs, ResultRunKey) },
			"NoRunFirstView":        func(doc *TestResultDocument) { doc.Runs[ResultRunKey].FirstView = nil },
			"NoBreakdown":           func(doc *TestResultDocument) { doc.Runs[ResultRunKey].FirstView.Breakdown = nil },
			"MissingBreakdownEntry": func(doc *TestResultDocument) { delete(doc.Runs[ResultRunKey].FirstView.Breakdown, "font") },
			"NoVideoFrames":         func(doc *TestResultDocument) { doc.Runs[ResultRunKey].FirstView.VideoFrames = nil },
			"BadFrameURL": func(doc *TestResultDocument) {
				doc.Runs[ResultRunKey].FirstView.VideoFrames[1].Image = "http://[::1"
			},
		} {
			t.Run(name, func(t *testing.T) {
				doc := loadTestResultDocument(t)
				mutate(doc)

				record, err := BuildResultRecord(doc)
				assert.Error(t, err)
				assert.Nil(t, record)
			})
		}
	})
	t.Run("InvalidRecord", func(t *testing.T) {
		for name, mutate := range map[string]func(*TestResultDocument){
			"NegativeMetric":      func(doc *TestResultDocument) { doc.Average.FirstView.FirstPaint = -1 },
			"ScoreOutOfRange":     func(doc *TestResultDocument) { doc.Average.FirstView.LighthouseScore = float64Ptr(1.5) },
			"NegativeCompletion":  func(doc *TestResultDocument) { doc.Completed = -10 },
			"NegativeBreakdown":   func(doc *TestResultDocument) { doc.Runs[ResultRunKey].FirstView.Breakdown["js"].Bytes = -1 },
			"NegativeFrameTiming": func(doc *TestResultDocument) { doc.Runs[ResultRunKey].FirstView.VideoFrames[0].Time = -5 },
		} {
			t.Run(name, func(t *testing.T) {
				doc := loadTestResultDocument(t)
				mutate(doc)

				record, err := BuildResultRecord(doc)
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid result record")
				assert.Nil(t, record)
			})
		}
	})
	t.Run("NilDocument", func(t *testing.T) {
		record, err := BuildResultRecord(nil)
		assert.Error(t, err)
		assert.Nil(t, record)
	})
}

func TestResultRecordValidate(t *testing.T) {
	valid := func() ResultRecord {
		return ResultRecord{ID: "abc", Timestamp: 10, Date: 10, LoadTime: 1, Lighthouse: intPtr(90)}
	}

	t.Run("Valid", func(t *testing.T) {
		record := valid()
		assert.NoError(t, record.Validate())
	})
	t.Run("MissingID", func(t *testing.T) {
		record := valid()
		record.ID = ""
		assert.Error(t, record.Validate())
	})
	t.Run("NegativeMetric", func(t *testing.T) {
		record := valid()
		record.TTFB = -1
		assert.Error(t, record.Validate())
	})
	t.Run("NegativeBreakdown", func(t *testing.T) {
		record := valid()
		record.Breakdown.JS.Bytes = -5
		assert.Error(t, record.Validate())
	})
	t.Run("ScoreOutOfRange", func(t *testing.T) {
		record := valid()
		record.Lighthouse = intPtr(101)
		assert.Error(t, record.Validate())
	})
	t.Run("NegativeFrame", func(t *testing.T) {
		record := valid()
		record.VideoFrames = []VideoFrame{{Image: "a", Time: -1}}
		assert.Error(t, record.Validate())
	})
}

func float64Ptr(f float64) *float64 { return &f }
func intPtr(i int) *int             { return &i }
