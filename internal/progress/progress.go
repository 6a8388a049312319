// Package progress fans scan and clear events out to subscribers
package progress

import (
	"cmp"
	"fmt"
	"sync"
	"time"

	"github.com/fenilsonani/diskscope/pkg/utils"
)

// Phase represents the current phase of an operation
type Phase string

const (
	PhaseScanning Phase = "scanning"
	PhaseCleaning Phase = "cleaning"
	PhaseComplete Phase = "complete"
	PhaseError    Phase = "error"
)

// Event is anything published to subscribers: *RootProgress or *ClearProgress
type Event interface {
	event()
}

// RootProgress reports the state of one scan root
type RootProgress struct {
	ScanID       string
	Category     string
	Root         string
	Phase        Phase
	FilesFound   int
	TotalSize    uint64
	SoftFailures int
	Truncated    bool
	StartTime    time.Time
	Error        error
}

// ClearProgress reports the state of a clearing batch
type ClearProgress struct {
	Category    string
	Phase       Phase
	CurrentFile string
	Cleared     int
	Failed      int
	Total       int
	UsingPkexec bool
	StartTime   time.Time
	Error       error
}

func (*RootProgress) event()  {}
func (*ClearProgress) event() {}

// Reporter provides thread-safe progress fan-out. A nil *Reporter is valid
// and drops every event.
type Reporter struct {
	mu        sync.RWMutex
	listeners []chan Event
}

// NewReporter creates a new progress reporter
func NewReporter() *Reporter {
	return &Reporter{}
}

// Subscribe returns a channel that receives progress updates
func (r *Reporter) Subscribe() <-chan Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan Event, 32)
	r.listeners = append(r.listeners, ch)
	return ch
}

// Unsubscribe closes and removes a listener channel
func (r *Reporter) Unsubscribe(ch <-chan Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, listener := range r.listeners {
		if listener == ch {
			close(listener)
			r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
			return
		}
	}
}

// Close unsubscribes every listener
func (r *Reporter) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, listener := range r.listeners {
		close(listener)
	}
	r.listeners = nil
}

// Publish notifies listeners without blocking; a full listener misses the
// event.
func (r *Reporter) Publish(ev Event) {
	if r == nil {
		return
	}

	r.mu.RLock()
	listeners := make([]chan Event, len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.RUnlock()

	for _, listener := range listeners {
		select {
		case listener <- ev:
		default:
		}
	}
}

// Format returns a human-readable line for an event
func Format(ev Event) string {
	switch p := ev.(type) {
	case *RootProgress:
		return FormatRootProgress(p)
	case *ClearProgress:
		return FormatClearProgress(p)
	}
	return "Working..."
}

// FormatRootProgress returns a human-readable scan progress string
func FormatRootProgress(p *RootProgress) string {
	if p == nil {
		return "Initializing..."
	}

	elapsed := time.Since(p.StartTime)

	switch p.Phase {
	case PhaseScanning:
		return fmt.Sprintf("Scanning %s: %s", p.Category, p.Root)
	case PhaseComplete:
		suffix := ""
		if p.Truncated {
			suffix += " (entry limit reached)"
		}
		if p.SoftFailures > 0 {
			suffix += fmt.Sprintf(" (%d unreadable)", p.SoftFailures)
		}
		return fmt.Sprintf("Scanned %s: %d files (%s) in %s%s",
			p.Root,
			p.FilesFound,
			utils.FormatBytes(p.TotalSize),
			FormatDuration(elapsed),
			suffix)
	case PhaseError:
		return fmt.Sprintf("Scan error in %s: %v", cmp.Or(p.Root, p.Category), p.Error)
	default:
		return "Scanning..."
	}
}

// FormatClearProgress returns a human-readable clear progress string
func FormatClearProgress(p *ClearProgress) string {
	if p == nil {
		return "Preparing..."
	}

	elapsed := time.Since(p.StartTime)

	switch p.Phase {
	case PhaseCleaning:
		percentage := 0
		if p.Total > 0 {
			percentage = ((p.Cleared + p.Failed) * 100) / p.Total
		}
		elevated := ""
		if p.UsingPkexec {
			elevated = " [PKEXEC]"
		}
		return fmt.Sprintf("Clearing %s... %d/%d files (%d%%)%s",
			p.Category,
			p.Cleared+p.Failed,
			p.Total,
			percentage,
			elevated)
	case PhaseComplete:
		return fmt.Sprintf("Cleared %d %s files in %s (%d failed)",
			p.Cleared,
			p.Category,
			FormatDuration(elapsed),
			p.Failed)
	case PhaseError:
		return fmt.Sprintf("Clear error: %v", p.Error)
	default:
		return "Preparing clear..."
	}
}

// FormatDuration formats duration in human-readable format
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)

	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
