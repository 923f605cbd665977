// Package progress carries export progress from the pipeline to whatever is
// displaying it, and enforces the export lifecycle.
package progress

import (
	"errors"
	"fmt"
	"sync"
)

// Event is one progress update.
type Event struct {
	Percent int
	Text    string
}

// Result is the terminal status of an export run.
type Result struct {
	Success bool
	Message string
}

// Reporter receives progress events, non-fatal warnings and the final result.
type Reporter interface {
	Progress(Event)
	Warn(message string)
	Finish(Result)
}

type State int

const (
	Idle State = iota
	Validating
	Resolving
	Processing
	Writing
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case Resolving:
		return "resolving"
	case Processing:
		return "processing"
	case Writing:
		return "writing"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var ErrInvalidTransition = errors.New("invalid export state transition")

// Tracker walks one export run through Idle → Validating → Resolving →
// Processing → Writing → Done, with Failed reachable from any non-terminal state.
// Percentages never go backwards.
type Tracker struct {
	mu       sync.Mutex
	reporter Reporter
	state    State
	percent  int
}

func NewTracker(r Reporter) *Tracker {
	if r == nil {
		r = Nop{}
	}
	return &Tracker{reporter: r}
}

func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Enter moves to the next lifecycle state and emits an event.
func (t *Tracker) Enter(s State, percent int, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Done || t.state == Failed || s == Failed || s == Done || s != t.state+1 {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.state, s)
	}
	t.state = s
	t.emit(percent, text)
	return nil
}

// Step reports progress within the current state.
func (t *Tracker) Step(percent int, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.emit(percent, text)
}

func (t *Tracker) emit(percent int, text string) {
	if percent < t.percent {
		percent = t.percent
	}
	if percent > 100 {
		percent = 100
	}
	t.percent = percent
	t.reporter.Progress(Event{Percent: percent, Text: text})
}

func (t *Tracker) Warn(message string) {
	t.reporter.Warn(message)
}

// Done finishes a run that reached the Writing state.
func (t *Tracker) Done(message string) (Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != Writing {
		return Result{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.state, Done)
	}
	t.state = Done
	t.emit(100, message)
	res := Result{Success: true, Message: message}
	t.reporter.Finish(res)
	return res, nil
}

// Fail finishes the run with err. Calling it on a finished run is a no-op.
func (t *Tracker) Fail(err error) Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	res := Result{Success: false, Message: err.Error()}
	if t.state == Done || t.state == Failed {
		return res
	}
	t.state = Failed
	t.reporter.Finish(res)
	return res
}

// Scale maps processed/total into [from, to].
func Scale(processed, total, from, to int) int {
	if total <= 0 {
		return to
	}
	return from + (to-from)*processed/total
}

// Nop discards everything.
type Nop struct{}

func (Nop) Progress(Event) {}
func (Nop) Warn(string)    {}
func (Nop) Finish(Result)  {}

// Recorder keeps everything it receives.
type Recorder struct {
	mu       sync.Mutex
	Events   []Event
	Warnings []string
	Results  []Result
}

func (r *Recorder) Progress(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, e)
}

func (r *Recorder) Warn(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Warnings = append(r.Warnings, message)
}

func (r *Recorder) Finish(res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Results = append(r.Results, res)
}
