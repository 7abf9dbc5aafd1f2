package model

// TestResultDocument is the "data" section of a WebPageTest jsonResult
// response. Only the fields the result record needs are decoded.
type TestResultDocument struct {
	ID        string               `json:"id"`
	URL       string               `json:"url,omitempty"`
	Location  string               `json:"location,omitempty"`
	Completed int64                `json:"completed"`
	Runs      map[string]*RunViews `json:"runs"`
	Average   *RunViews            `json:"average"`
}

// RunViews groups the first and repeat view of a run or of the average. Runs
// are keyed by their run number, starting at "1".
type RunViews struct {
	FirstView  *ViewResult `json:"firstView"`
	RepeatView *ViewResult `json:"repeatView,omitempty"`
}

// ViewResult holds the metrics of one page view.
type ViewResult struct {
	LoadTime       float64 `json:"loadTime"`
	TTFB           float64 `json:"TTFB"`
	DOMInteractive float64 `json:"domInteractive"`
	DOMElements    float64 `json:"domElements"`
	FirstPaint     float64 `json:"firstPaint"`
	FullyLoaded    float64 `json:"fullyLoaded"`
	Render         float64 `json:"render"`
	SpeedIndex     float64 `json:"SpeedIndex"`
	VisualComplete float64 `json:"visualComplete"`

	// LighthouseScore is the normalized (0-1) lighthouse progressive web
	// app score. It is absent unless lighthouse ran.
	LighthouseScore *float64 `json:"lighthouse.ProgressiveWebApp,omitempty"`

	Breakdown   map[string]*ResourceStats `json:"breakdown,omitempty"`
	VideoFrames []RawVideoFrame           `json:"videoFrames,omitempty"`
}

// ResourceStats is the byte and request count for one resource type.
type ResourceStats struct {
	Bytes    int64 `json:"bytes"`
	Requests int64 `json:"requests"`
}

// RawVideoFrame is a filmstrip frame as reported by WebPageTest. The frame
// file id is carried in the query string of Image.
type RawVideoFrame struct {
	Time             int64   `json:"time"`
	Image            string  `json:"image"`
	VisuallyComplete float64 `json:"VisuallyComplete"`
}
