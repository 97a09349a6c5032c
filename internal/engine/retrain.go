package engine

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/weathernft-service/internal/domain"
	"github.com/couchcryptid/weathernft-service/internal/factory"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Retraining job statuses.
const (
	JobRunning   = "running"
	JobCompleted = "completed"
	JobCancelled = "cancelled"
)

// RetrainJob is a snapshot of a simulated model retraining.
type RetrainJob struct {
	ID          string    `json:"jobId"`
	Algorithm   string    `json:"algorithm"`
	Status      string    `json:"status"`
	StartedAt   time.Time `json:"startedAt"`
	FinishesAt  time.Time `json:"estimatedCompletion"`
	FinishedAt  time.Time `json:"finishedAt,omitzero"`
	NewAccuracy float64   `json:"newAccuracy,omitempty"`
}

type retrainJob struct {
	RetrainJob
	timer clockwork.Timer
}

type retrainJobs struct {
	mu   sync.Mutex
	jobs map[string]*retrainJob
}

func newRetrainJobs() *retrainJobs {
	return &retrainJobs{jobs: make(map[string]*retrainJob)}
}

// stopAll cancels every running job and returns them, oldest first.
func (r *retrainJobs) stopAll(now time.Time) []RetrainJob {
	r.mu.Lock()
	defer r.mu.Unlock()

	var stopped []RetrainJob
	for _, j := range r.jobs {
		if j.Status == JobRunning {
			j.timer.Stop()
			j.Status = JobCancelled
			j.FinishedAt = now
			stopped = append(stopped, j.RetrainJob)
		}
	}
	slices.SortFunc(stopped, func(a, b RetrainJob) int {
		if c := a.StartedAt.Compare(b.StartedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return stopped
}

// lastCompleted maps each algorithm to the finish time of its latest
// completed job.
func (r *retrainJobs) lastCompleted() map[string]time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]time.Time)
	for _, j := range r.jobs {
		if j.Status == JobCompleted && j.FinishedAt.After(out[j.Algorithm]) {
			out[j.Algorithm] = j.FinishedAt
		}
	}
	return out
}

// RetrainAlgorithm starts a retraining job that completes after the
// configured duration. An algorithm has at most one running job.
func (e *Engine) RetrainAlgorithm(name string) (RetrainJob, error) {
	data := map[string]any{"algorithm": name}
	if _, known := factory.LookupAlgorithm(name); !known && !e.settings.Get().IsEnabled(name) {
		err := &domain.NotFoundError{Kind: "algorithm", ID: name}
		e.recordFailure(fmt.Sprintf("Retraining of %s rejected", name), err, data)
		return RetrainJob{}, err
	}

	now := e.clock.Now().UTC()

	e.retrain.mu.Lock()
	for _, j := range e.retrain.jobs {
		if j.Algorithm == name && j.Status == JobRunning {
			e.retrain.mu.Unlock()
			data["jobId"] = j.ID
			e.recordFailure(fmt.Sprintf("Retraining of %s rejected", name), domain.ErrRetrainInProgress, data)
			return RetrainJob{}, domain.ErrRetrainInProgress
		}
	}
	job := &retrainJob{RetrainJob: RetrainJob{
		ID:         "job_" + uuid.NewString(),
		Algorithm:  name,
		Status:     JobRunning,
		StartedAt:  now,
		FinishesAt: now.Add(e.opts.RetrainDuration),
	}}
	e.retrain.jobs[job.ID] = job
	jobID := job.ID
	job.timer = e.clock.AfterFunc(e.opts.RetrainDuration, func() { e.completeRetrain(jobID) })
	snapshot := job.RetrainJob
	e.retrain.mu.Unlock()

	e.metrics.RetrainJobs.WithLabelValues("started").Inc()
	e.record(domain.LevelInfo, fmt.Sprintf("Retraining started for %s", name), map[string]any{
		"algorithm":     name,
		"jobId":         snapshot.ID,
		"estimatedTime": e.opts.RetrainDuration.String(),
	})
	return snapshot, nil
}

// completeRetrain runs when a job's timer fires. A job cancelled in the
// meantime stays cancelled.
func (e *Engine) completeRetrain(jobID string) {
	e.retrain.mu.Lock()
	job, ok := e.retrain.jobs[jobID]
	if !ok || job.Status != JobRunning {
		e.retrain.mu.Unlock()
		return
	}
	job.Status = JobCompleted
	job.FinishedAt = e.clock.Now().UTC()
	job.NewAccuracy = math.Round((90+e.rng.Float64()*5)*10) / 10
	done := job.RetrainJob
	e.retrain.mu.Unlock()

	e.metrics.RetrainJobs.WithLabelValues(JobCompleted).Inc()
	e.record(domain.LevelInfo, fmt.Sprintf("Retraining completed for %s", done.Algorithm), map[string]any{
		"algorithm":   done.Algorithm,
		"jobId":       done.ID,
		"newAccuracy": done.NewAccuracy,
	})
}

// CancelRetrain stops a running job.
func (e *Engine) CancelRetrain(jobID string) (RetrainJob, error) {
	data := map[string]any{"jobId": jobID}

	e.retrain.mu.Lock()
	job, ok := e.retrain.jobs[jobID]
	var err error
	switch {
	case !ok:
		err = &domain.NotFoundError{Kind: "retraining job", ID: jobID}
	case job.Status != JobRunning:
		err = domain.ErrJobFinished
	default:
		job.timer.Stop()
		job.Status = JobCancelled
		job.FinishedAt = e.clock.Now().UTC()
	}
	var snapshot RetrainJob
	if ok {
		snapshot = job.RetrainJob
		data["algorithm"] = job.Algorithm
	}
	e.retrain.mu.Unlock()

	if err != nil {
		e.recordFailure(fmt.Sprintf("Cancellation of retraining job %s rejected", jobID), err, data)
		return RetrainJob{}, err
	}

	e.metrics.RetrainJobs.WithLabelValues(JobCancelled).Inc()
	e.record(domain.LevelWarning, fmt.Sprintf("Retraining cancelled for %s", snapshot.Algorithm), data)
	return snapshot, nil
}

// RetrainStatus returns a job by id.
func (e *Engine) RetrainStatus(jobID string) (RetrainJob, error) {
	e.retrain.mu.Lock()
	defer e.retrain.mu.Unlock()

	job, ok := e.retrain.jobs[jobID]
	if !ok {
		return RetrainJob{}, &domain.NotFoundError{Kind: "retraining job", ID: jobID}
	}
	return job.RetrainJob, nil
}

// RetrainJobs lists every job, newest first.
func (e *Engine) RetrainJobs() []RetrainJob {
	e.retrain.mu.Lock()
	out := make([]RetrainJob, 0, len(e.retrain.jobs))
	for _, j := range e.retrain.jobs {
		out = append(out, j.RetrainJob)
	}
	e.retrain.mu.Unlock()

	slices.SortFunc(out, func(a, b RetrainJob) int {
		if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}
