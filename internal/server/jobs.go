package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"counterpoint/internal/core/model"
)

type JobState string

const (
	StateIdle       JobState = "idle"
	StateAnalyzing  JobState = "analyzing"
	StateReady      JobState = "ready"
	StateGenerating JobState = "generating"
	StateComplete   JobState = "complete"
)

// Job is one channel analysis tracked by the server. Progress is simulated:
// a ticker walks it toward a per-stage cap, since the model service gives no
// real progress signal.
type Job struct {
	ID         string
	ChannelURL string
	State      JobState
	Progress   float64
	Error      string
	Analysis   *model.Analysis
	Deck       *model.Deck

	cap float64
}

// Registry is the in-memory job store. All access goes through the mutex;
// handlers only ever see copies.
type Registry struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*Job)}
}

func (r *Registry) NewJob(channelURL string) Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	j := &Job{
		ID:         uuid.New().String(),
		ChannelURL: channelURL,
		State:      StateIdle,
	}
	r.jobs[j.ID] = j
	return *j
}

func (r *Registry) Get(id string) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// Update mutates a job under the registry lock and returns a copy of the
// result.
func (r *Registry) Update(id string, fn func(*Job)) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	fn(j)
	return *j, true
}

// SetCap moves the progress ceiling, e.g. when the pipeline enters a new
// stage. Progress itself only ever rises via the animator.
func (r *Registry) SetCap(id string, cap float64) {
	r.Update(id, func(j *Job) {
		if cap > j.cap {
			j.cap = cap
		}
	})
}

// Animate nudges the job's progress toward the current cap on every tick
// until done is closed. The approach is asymptotic so a stalled stage still
// looks alive without ever pretending to finish.
func (r *Registry) Animate(id string, interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			r.Update(id, func(j *Job) {
				if j.Progress < j.cap {
					j.Progress += (j.cap - j.Progress) * 0.08
				}
			})
		}
	}
}
