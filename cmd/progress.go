package cmd

import (
	"sync"

	"nc-export/internal/progress"

	"github.com/gosuri/uiprogress"
)

// barReporter draws export progress as a uiprogress bar. Warnings are held
// back until the bar is gone so they do not tear the display.
type barReporter struct {
	mu       sync.Mutex
	ui       *uiprogress.Progress
	bar      *uiprogress.Bar
	text     string
	warnings []string
	stopped  bool
}

func newBarReporter(title string) *barReporter {
	r := &barReporter{ui: uiprogress.New()}
	r.bar = r.ui.AddBar(100).AppendCompleted().PrependElapsed()
	r.bar.PrependFunc(func(b *uiprogress.Bar) string {
		return title + ": "
	})
	r.bar.AppendFunc(func(b *uiprogress.Bar) string {
		r.mu.Lock()
		defer r.mu.Unlock()
		return " " + truncate(r.text, 48)
	})
	r.ui.Start()
	return r
}

func (r *barReporter) Progress(e progress.Event) {
	r.mu.Lock()
	r.text = e.Text
	r.mu.Unlock()
	r.bar.Set(e.Percent)
}

func (r *barReporter) Warn(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, message)
}

// Finish stops the bar. The lock is released first because the final redraw
// calls back into the append decorator.
func (r *barReporter) Finish(progress.Result) {
	r.mu.Lock()
	stop := !r.stopped
	r.stopped = true
	r.mu.Unlock()
	if stop {
		r.ui.Stop()
	}
}

func (r *barReporter) Warnings() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.warnings...)
}
