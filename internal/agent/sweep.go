package agent

import (
	"strings"

	"github.com/casefile/inquest/internal/config"
	"github.com/casefile/inquest/internal/models"
)

// sweepRationalePrefix is the marker a model answer must carry when it
// declines a required deep sweep. Detected case-insensitively per line.
const sweepRationalePrefix = "sweep rationale:"

// sweepTracker watches observed match volume during a session and decides
// when the deep-sweep obligation is triggered and when it is discharged.
type sweepTracker struct {
	cfg config.SweepConfig

	// maxTotal is the largest match volume any count or search reported.
	maxTotal int
	// sweepSearched is set once a search requested a limit covering the
	// triggering volume (capped by the configured minimum).
	sweepSearched bool
	// batchReads is the largest single read_batch size seen after the
	// expanded search.
	batchReads int
}

func newSweepTracker(cfg config.SweepConfig) *sweepTracker {
	return &sweepTracker{cfg: cfg}
}

// Observe updates the tracker from one executed tool record.
func (s *sweepTracker) Observe(rec *models.ToolRecord) {
	if rec.Total > s.maxTotal {
		s.maxTotal = rec.Total
	}
	if rec.Tool == "search" && rec.Limit >= s.requiredLimit() {
		s.sweepSearched = true
	}
	if rec.Tool == "read_batch" && s.sweepSearched && len(rec.ReadIDs) > s.batchReads {
		s.batchReads = len(rec.ReadIDs)
	}
}

// Required reports whether the observed volume obliges a deep sweep.
func (s *sweepTracker) Required() bool {
	return s.maxTotal > s.cfg.CountThreshold
}

// Satisfied reports whether the transcript shows an expanded search followed
// by a batch read of sweep size.
func (s *sweepTracker) Satisfied() bool {
	return s.sweepSearched && s.batchReads >= s.requiredBatch()
}

// requiredLimit is the search limit that counts as an expanded search for the
// triggering volume.
func (s *sweepTracker) requiredLimit() int {
	limit := s.maxTotal
	if limit > s.cfg.LimitMin {
		limit = s.cfg.LimitMin
	}
	if limit < 1 {
		limit = 1
	}
	return limit
}

// requiredBatch is how many documents a sweep batch must cover: the target
// fraction of the volume, bounded to the configured batch window and never
// more than the volume itself.
func (s *sweepTracker) requiredBatch() int {
	target := int(float64(s.maxTotal) * s.cfg.TargetFraction)
	if target < s.cfg.MinBatchDocs {
		target = s.cfg.MinBatchDocs
	}
	if target > s.cfg.MaxBatchDocs {
		target = s.cfg.MaxBatchDocs
	}
	if target > s.maxTotal {
		target = s.maxTotal
	}
	return target
}

// RecommendedBatch is exposed to build corrective guidance for the model.
func (s *sweepTracker) RecommendedBatch() int {
	return s.requiredBatch()
}

// hasSweepRationale reports whether the answer carries an explicit rationale
// line declining the sweep, and returns the rationale text.
func hasSweepRationale(answer string) (string, bool) {
	for _, line := range strings.Split(answer, "\n") {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) < len(sweepRationalePrefix) {
			continue
		}
		if strings.EqualFold(trimmed[:len(sweepRationalePrefix)], sweepRationalePrefix) {
			rationale := strings.TrimSpace(trimmed[len(sweepRationalePrefix):])
			if rationale != "" {
				return rationale, true
			}
		}
	}
	return "", false
}
