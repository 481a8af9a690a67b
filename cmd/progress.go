package main

import (
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/fspecii/ace-step-ui/internal/domain"
	"github.com/fspecii/ace-step-ui/internal/ports"
)

// progressReporter renders export events as a terminal progress bar.
type progressReporter struct {
	bus ports.EventBus
	bar *progressbar.ProgressBar

	mu   sync.Mutex
	subs []domain.SubscriptionID
	last int
	done bool
}

func newProgressReporter(bus ports.EventBus, w io.Writer) *progressReporter {
	r := &progressReporter{
		bus: bus,
		bar: progressbar.NewOptions(100,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription("Preparing"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "█",
				SaucerPadding: "░",
				BarStart:      "[",
				BarEnd:        "]",
			}),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionSetRenderBlankState(true),
			progressbar.OptionOnCompletion(func() { _, _ = io.WriteString(w, "\n") }),
		),
	}
	r.subs = []domain.SubscriptionID{
		bus.Subscribe(domain.EventExportProgress, r.onProgress),
		bus.Subscribe(domain.EventExportFailed, r.onFailed),
	}
	return r
}

// stageLabel describes where an export is at.
func stageLabel(e domain.ExportProgressEvent) string {
	switch {
	case e.State == domain.ExportDone:
		return "Done"
	case e.State == domain.ExportEncoding:
		return "Encoding"
	case e.TotalFrames > 0 && e.FramesRendered > 0:
		return "Rendering"
	case e.Progress > 0:
		return "Decoding"
	default:
		return "Preparing"
	}
}

func (r *progressReporter) onProgress(event domain.Event) {
	e, ok := event.(domain.ExportProgressEvent)
	if !ok {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return
	}
	r.bar.Describe(stageLabel(e))
	r.last = int(e.Progress)
	_ = r.bar.Set(r.last)
	if e.State == domain.ExportDone {
		r.done = true
		_ = r.bar.Finish()
	}
}

func (r *progressReporter) onFailed(domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.done {
		r.done = true
		r.bar.Describe("Failed")
		_ = r.bar.Exit()
	}
}

// Percent returns the last progress shown.
func (r *progressReporter) Percent() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Close unsubscribes from the bus.
func (r *progressReporter) Close() {
	r.mu.Lock()
	subs := r.subs
	r.subs = nil
	r.mu.Unlock()

	for _, id := range subs {
		r.bus.Unsubscribe(id)
	}
}
