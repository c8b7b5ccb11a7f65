package notify

import (
	"context"
	"sync"
)

// Call is one Notify invocation seen by a Recorder.
type Call struct {
	OwnerID string
	Message string
	Err     error
}

// Recorder is a scripted Notifier for tests. Each call consumes the next
// scripted outcome; once the script runs out every call succeeds.
type Recorder struct {
	mu     sync.Mutex
	script []error
	calls  []Call
}

// NewRecorder returns a Recorder that answers with outcomes in order.
func NewRecorder(outcomes ...error) *Recorder {
	return &Recorder{script: outcomes}
}

// Script appends more outcomes.
func (r *Recorder) Script(outcomes ...error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.script = append(r.script, outcomes...)
}

func (r *Recorder) Notify(ctx context.Context, ownerID, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	if len(r.script) > 0 {
		err, r.script = r.script[0], r.script[1:]
	}
	r.calls = append(r.calls, Call{OwnerID: ownerID, Message: message, Err: err})
	return err
}

// Calls returns every call made so far.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Successes counts calls that returned nil.
func (r *Recorder) Successes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.Err == nil {
			n++
		}
	}
	return n
}
