package pipeline

import (
	"time"

	"github.com/MeKo-Tech/adaptocr/internal/ocrerr"
	"github.com/MeKo-Tech/adaptocr/internal/orchestrator"
	"github.com/MeKo-Tech/adaptocr/internal/profile"
	"github.com/MeKo-Tech/adaptocr/internal/recommend"
)

// Status of one image. The orchestrator outcomes plus cancelled.
type Status = orchestrator.Status

const (
	StatusOK      = orchestrator.StatusOK
	StatusPartial = orchestrator.StatusPartial
	StatusFailed  = orchestrator.StatusFailed
)

// StatusCancelled marks work that never ran because the run was cancelled.
const StatusCancelled Status = "cancelled"

// ImageResult is the per-frame outcome. Every decoded frame and every input
// that could not be decoded produces exactly one.
type ImageResult struct {
	DocumentID   string `json:"document_id"`
	DocumentName string `json:"document_name"`
	Part         int    `json:"part"`
	Page         int    `json:"page,omitempty"`
	Frame        int    `json:"frame"`

	Status      Status      `json:"status"`
	ErrorKind   ocrerr.Kind `json:"error_kind,omitempty"`
	Err         error       `json:"-"`
	Error       string      `json:"error,omitempty"`
	NeedsReview bool        `json:"needs_review"`

	Text                 string `json:"text"`
	PlaceholdersInserted int    `json:"placeholders_inserted"`

	Profile             *profile.ImageProfile `json:"profile,omitempty"`
	Params              *recommend.Params     `json:"params,omitempty"`
	DownscaleTriggered  bool                  `json:"downscale_triggered"`
	DownscaleReason     string                `json:"downscale_reason,omitempty"`
	RedactionCandidates int                   `json:"redaction_candidates"`
	RedactionsValidated int                   `json:"redactions_validated"`

	States     []orchestrator.State     `json:"states,omitempty"`
	MergeStats orchestrator.MergeStats  `json:"merge_stats"`
	Timings    map[string]time.Duration `json:"timings,omitempty"`
	Duration   time.Duration            `json:"duration"`
}

// setErr records err with its kind tag.
func (r *ImageResult) setErr(err error) {
	r.Err = err
	r.ErrorKind = ocrerr.KindOf(err)
	if err != nil {
		r.Error = err.Error()
	}
}

// Degraded reports whether the image needs attention.
func (r ImageResult) Degraded() bool {
	return r.Status != StatusOK || r.NeedsReview
}

// Report is the outcome of one Process call.
type Report struct {
	RunID     string        `json:"run_id"`
	Started   time.Time     `json:"started"`
	Finished  time.Time     `json:"finished"`
	Documents int           `json:"documents"`
	Results   []ImageResult `json:"results"`
	Resources ResourceStats `json:"resources"`
}

// Duration is the wall time of the batch.
func (r *Report) Duration() time.Duration { return r.Finished.Sub(r.Started) }

// Degraded enumerates every image that is not a clean success.
func (r *Report) Degraded() []ImageResult {
	var out []ImageResult
	for _, res := range r.Results {
		if res.Degraded() {
			out = append(out, res)
		}
	}
	return out
}

// Counts tallies results by status.
func (r *Report) Counts() map[Status]int {
	counts := make(map[Status]int)
	for _, res := range r.Results {
		counts[res.Status]++
	}
	return counts
}
