package model

import (
	"math"
	"net/url"

	"github.com/mongodb/anser/bsonutil"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
)

// ResultRunKey is the run whose first view supplies the breakdown and the
// filmstrip of a stored result.
const ResultRunKey = "1"

// ResourceTypes lists the resource types kept in a result breakdown.
var ResourceTypes = []string{"css", "flash", "font", "html", "image", "js", "other", "video"}

// ResultRecord is the compact, persisted form of one completed test.
type ResultRecord struct {
	ID        string `bson:"_id" json:"id"`
	Timestamp int64  `bson:"timestamp" json:"timestamp"`
	Date      int64  `bson:"date" json:"date"`

	LoadTime       float64 `bson:"load_time" json:"loadTime"`
	TTFB           float64 `bson:"ttfb" json:"TTFB"`
	DOMInteractive float64 `bson:"dom_interactive" json:"domInteractive"`
	DOMElements    float64 `bson:"dom_elements" json:"domElements"`
	FirstPaint     float64 `bson:"first_paint" json:"firstPaint"`
	FullyLoaded    float64 `bson:"fully_loaded" json:"fullyLoaded"`
	Render         float64 `bson:"render" json:"render"`
	SpeedIndex     float64 `bson:"speed_index" json:"SpeedIndex"`
	VisualComplete float64 `bson:"visual_complete" json:"visualComplete"`

	// Lighthouse is the lighthouse score (0-100), nil when the test did
	// not produce one.
	Lighthouse *int `bson:"lighthouse" json:"lighthouse"`

	Breakdown   ResultBreakdown `bson:"breakdown" json:"breakdown"`
	VideoFrames []VideoFrame    `bson:"video_frames" json:"videoFrames"`
}

var (
	ResultRecordIDKey        = bsonutil.MustHaveTag(ResultRecord{}, "ID")
	ResultRecordTimestampKey = bsonutil.MustHaveTag(ResultRecord{}, "Timestamp")
)

// ResourceCount is the byte and request count of one resource type.
type ResourceCount struct {
	Bytes    int64 `bson:"bytes" json:"bytes"`
	Requests int64 `bson:"requests" json:"requests"`
}

// ResultBreakdown is the per resource type breakdown of a page view.
type ResultBreakdown struct {
	CSS   ResourceCount `bson:"css" json:"css"`
	Flash ResourceCount `bson:"flash" json:"flash"`
	Font  ResourceCount `bson:"font" json:"font"`
	HTML  ResourceCount `bson:"html" json:"html"`
	Image ResourceCount `bson:"image" json:"image"`
	JS    ResourceCount `bson:"js" json:"js"`
	Other ResourceCount `bson:"other" json:"other"`
	Video ResourceCount `bson:"video" json:"video"`
}

func (b *ResultBreakdown) field(resourceType string) *ResourceCount {
	switch resourceType {
	case "css":
		return &b.CSS
	case "flash":
		return &b.Flash
	case "font":
		return &b.Font
	case "html":
		return &b.HTML
	case "image":
		return &b.Image
	case "js":
		return &b.JS
	case "other":
		return &b.Other
	case "video":
		return &b.Video
	default:
		return nil
	}
}

// VideoFrame is one filmstrip sample.
type VideoFrame struct {
	Image            string  `bson:"i" json:"_i"`
	Time             int64   `bson:"t" json:"_t"`
	VisuallyComplete float64 `bson:"vc" json:"_vc"`
}

// Validate checks that the record is identified and that no metric is
// negative.
func (r *ResultRecord) Validate() error {
	catcher := grip.NewBasicCatcher()

	catcher.NewWhen(r.ID == "", "result record must have an id")
	catcher.NewWhen(r.Timestamp < 0, "timestamp must not be negative")
	catcher.NewWhen(r.Date < 0, "date must not be negative")

	for name, val := range map[string]float64{
		"loadTime":       r.LoadTime,
		"TTFB":           r.TTFB,
		"domInteractive": r.DOMInteractive,
		"domElements":    r.DOMElements,
		"firstPaint":     r.FirstPaint,
		"fullyLoaded":    r.FullyLoaded,
		"render":         r.Render,
		"SpeedIndex":     r.SpeedIndex,
		"visualComplete": r.VisualComplete,
	} {
		catcher.ErrorfWhen(val < 0, "metric '%s' must not be negative", name)
	}

	if r.Lighthouse != nil {
		catcher.ErrorfWhen(*r.Lighthouse < 0 || *r.Lighthouse > 100, "lighthouse score %d out of range", *r.Lighthouse)
	}

	for _, resourceType := range ResourceTypes {
		count := r.Breakdown.field(resourceType)
		catcher.ErrorfWhen(count.Bytes < 0 || count.Requests < 0, "breakdown for '%s' must not be negative", resourceType)
	}

	for idx, frame := range r.VideoFrames {
		catcher.ErrorfWhen(frame.Time < 0 || frame.VisuallyComplete < 0, "video frame %d must not be negative", idx)
	}

	return catcher.Resolve()
}

// BuildResultRecord maps a WebPageTest result document onto a ResultRecord.
// Scalar metrics come from the averaged first view; the breakdown and
// filmstrip come from the first view of run "1". A document missing any of
// these sections is an error.
func BuildResultRecord(doc *TestResultDocument) (*ResultRecord, error) {
	if doc == nil {
		return nil, errors.New("result document is nil")
	}
	if doc.Average == nil || doc.Average.FirstView == nil {
		return nil, errors.Errorf("result document for test '%s' has no average first view", doc.ID)
	}
	run, ok := doc.Runs[ResultRunKey]
	if !ok || run == nil || run.FirstView == nil {
		return nil, errors.Errorf("result document for test '%s' has no first view for run %s", doc.ID, ResultRunKey)
	}

	avg := doc.Average.FirstView
	record := &ResultRecord{
		ID:             doc.ID,
		Timestamp:      doc.Completed,
		Date:           doc.Completed,
		LoadTime:       avg.LoadTime,
		TTFB:           avg.TTFB,
		DOMInteractive: avg.DOMInteractive,
		DOMElements:    avg.DOMElements,
		FirstPaint:     avg.FirstPaint,
		FullyLoaded:    avg.FullyLoaded,
		Render:         avg.Render,
		SpeedIndex:     avg.SpeedIndex,
		VisualComplete: avg.VisualComplete,
		Lighthouse:     lighthouseScore(avg.LighthouseScore),
	}

	for _, resourceType := range ResourceTypes {
		stats, ok := run.FirstView.Breakdown[resourceType]
		if !ok || stats == nil {
			return nil, errors.Errorf("result document for test '%s' has no '%s' breakdown", doc.ID, resourceType)
		}
		*record.Breakdown.field(resourceType) = ResourceCount{Bytes: stats.Bytes, Requests: stats.Requests}
	}

	frames, err := buildVideoFrames(run.FirstView.VideoFrames)
	if err != nil {
		return nil, errors.Wrapf(err, "problem building video frames for test '%s'", doc.ID)
	}
	record.VideoFrames = frames

	if err = record.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid result record for test '%s'", doc.ID)
	}

	return record, nil
}

func lighthouseScore(score *float64) *int {
	if score == nil {
		return nil
	}

	out := int(math.Floor(*score * 100))
	return &out
}

func buildVideoFrames(raw []RawVideoFrame) ([]VideoFrame, error) {
	if raw == nil {
		return nil, errors.New("video frames are missing")
	}

	frames := make([]VideoFrame, 0, len(raw))
	for idx, frame := range raw {
		imageURL, err := url.Parse(frame.Image)
		if err != nil {
			return nil, errors.Wrapf(err, "problem parsing image url of frame %d", idx)
		}

		frames = append(frames, VideoFrame{
			Image:            imageURL.Query().Get("file"),
			Time:             frame.Time,
			VisuallyComplete: frame.VisuallyComplete,
		})
	}

	return frames, nil
}
