// Package progress defines the event structures emitted by import jobs.
package progress

import (
	"errors"
	"time"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageJobStart    Stage = "JOB_START"
	StageJobDone     Stage = "JOB_DONE"
	StageJobError    Stage = "JOB_ERROR"
	StageFeedImport  Stage = "FEED_IMPORT"
	StagePageStaged  Stage = "PAGE_STAGED"
	StagePageSkipped Stage = "PAGE_SKIPPED"
)

// Event captures a single milestone of site import progress.
type Event struct {
	// SiteID identifies the import job.
	SiteID string
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which lifecycle or page milestone occurred.
	Stage Stage
	// URL is the optional page URL.
	URL string
	// Count carries the running staged-item count for the job.
	Count int
	// Dur captures latency for fetches and job completions.
	Dur time.Duration
	// Note lets emitters attach low-volume context (skip reason, error text).
	Note string
}

// Validate rejects events a sink could not attribute to a job.
func (e Event) Validate() error {
	if e.SiteID == "" {
		return errors.New("progress event requires a site id")
	}
	if e.Stage == "" {
		return errors.New("progress event requires a stage")
	}
	return nil
}
