package engine

import "sync"

// Phase names one pipeline stage. Phases always run in declaration order;
// clustering never starts before every bucket's scores are collected.
type Phase string

const (
	PhaseLoading    Phase = "load"
	PhaseBlocking   Phase = "block"
	PhaseScoring    Phase = "score"
	PhaseClustering Phase = "cluster"
	PhasePublishing Phase = "publish"
	PhaseComplete   Phase = "complete"
)

// Progress is a snapshot of the running pipeline.
type Progress struct {
	Phase       Phase  `json:"phase"`
	Current     int    `json:"current"`
	Total       int    `json:"total"`
	CurrentItem string `json:"current_item,omitempty"`
}

// ProgressTracker tracks and reports pipeline progress.
type ProgressTracker struct {
	callback func(*Progress)
	progress Progress
	mu       sync.RWMutex
}

// NewProgressTracker creates a new progress tracker.
func NewProgressTracker(callback func(*Progress)) *ProgressTracker {
	return &ProgressTracker{
		callback: callback,
		progress: Progress{
			Phase: PhaseLoading,
		},
	}
}

// SetPhase updates the current phase.
func (p *ProgressTracker) SetPhase(phase Phase) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.progress.Phase = phase
	p.progress.Current = 0
	p.progress.Total = 0
	p.notify()
}

// SetTotal sets the total items for current phase.
func (p *ProgressTracker) SetTotal(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.progress.Total = total
	p.notify()
}

// Increment increments the current progress.
func (p *ProgressTracker) Increment(currentItem string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.progress.Current++
	p.progress.CurrentItem = currentItem
	p.notify()
}

// Get returns current progress.
func (p *ProgressTracker) Get() Progress {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.progress
}

func (p *ProgressTracker) notify() {
	if p.callback != nil {
		// Copy to avoid race.
		progress := p.progress
		go p.callback(&progress)
	}
}
