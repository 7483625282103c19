package job

import (
	"context"
	"sync"

	"github.com/nao1215/wdcrawl/internal/model"
)

// Job is one running or finished crawl job. It owns the job's record,
// the latest progress snapshot, and the subscriber fan-out.
type Job struct {
	id string

	// cancel aborts the job's context with a cause.
	cancel context.CancelCauseFunc

	// done is closed when the job reaches a terminal state.
	done chan struct{}

	mu          sync.Mutex
	record      model.JobRecord
	progress    model.Progress
	subscribers map[int]chan model.Progress
	nextSubID   int
}

// newJob constructs a Job around an initial record.
func newJob(rec model.JobRecord, cancel context.CancelCauseFunc) *Job {
	return &Job{
		id:          rec.ID,
		cancel:      cancel,
		done:        make(chan struct{}),
		record:      rec,
		subscribers: make(map[int]chan model.Progress),
	}
}

// ID returns the job identifier.
func (j *Job) ID() string {
	return j.id
}

// Record returns a copy of the job's current record.
func (j *Job) Record() model.JobRecord {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.record
}

// Progress returns the latest published progress snapshot.
func (j *Job) Progress() model.Progress {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.progress
}

// Done returns a channel closed when the job reaches a terminal state.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Abort cancels the job. The job transitions to the aborted status once
// the orchestrator observes the cancellation; already-terminal jobs are
// unaffected.
func (j *Job) Abort() {
	j.cancel(ErrAborted)
}

// Subscribe registers a progress observer and returns its channel along
// with an unsubscribe function. The channel is buffered; when an observer
// falls behind, intermediate snapshots are dropped in its favor of newer
// ones rather than blocking the crawl.
func (j *Job) Subscribe() (<-chan model.Progress, func()) {
	j.mu.Lock()
	defer j.mu.Unlock()

	ch := make(chan model.Progress, 16)

	// Deliver the current snapshot immediately so late subscribers do
	// not wait for the next publish.
	ch <- j.progress

	// Subscribing to a finished job yields the final snapshot and closes.
	if j.record.Status.Terminal() {
		close(ch)
		return ch, func() {}
	}

	id := j.nextSubID
	j.nextSubID++
	j.subscribers[id] = ch

	unsubscribe := func() {
		j.mu.Lock()
		defer j.mu.Unlock()
		if existing, ok := j.subscribers[id]; ok {
			delete(j.subscribers, id)
			close(existing)
		}
	}
	return ch, unsubscribe
}

// publish stores a new snapshot and fans it out non-blockingly.
func (j *Job) publish(p model.Progress) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.progress = p
	for _, ch := range j.subscribers {
		select {
		case ch <- p:
		default:
			// Slow observer: drop the oldest buffered snapshot and
			// retry so it converges on recent state.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- p:
			default:
			}
		}
	}
}

// finish records the terminal state and closes out subscribers.
func (j *Job) finish(rec model.JobRecord) {
	j.mu.Lock()
	j.record = rec
	subs := j.subscribers
	j.subscribers = make(map[int]chan model.Progress)
	j.mu.Unlock()

	for _, ch := range subs {
		close(ch)
	}
	close(j.done)
}

// updateRecord replaces the stored record while the job is running.
func (j *Job) updateRecord(rec model.JobRecord) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.record = rec
}
