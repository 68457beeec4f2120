// Run progress and resource accounting
package metrics

import (
	"time"
)

// Progress counts frames through a run and derives the effective rate.
// It is used from the frame loop only and is not safe for concurrent use.
type Progress struct {
	start   time.Time
	read    int
	written int
	skipped int
	now     func() time.Time
}

// Stats is a point-in-time copy of Progress
type Stats struct {
	FramesRead    int
	FramesWritten int
	FramesSkipped int
	Elapsed       time.Duration
	FPS           float64
}

func NewProgress() *Progress {
	return &Progress{now: time.Now}
}

// Start resets the counters and the clock
func (p *Progress) Start() {
	p.start = p.now()
	p.read = 0
	p.written = 0
	p.skipped = 0
}

func (p *Progress) FrameRead() int {
	p.read++
	return p.read
}

func (p *Progress) FrameWritten() {
	p.written++
}

func (p *Progress) FrameSkipped() {
	p.skipped++
}

func (p *Progress) Elapsed() time.Duration {
	if p.start.IsZero() {
		return 0
	}
	return p.now().Sub(p.start)
}

// FPS is frames read per second of wall time since Start
func (p *Progress) FPS() float64 {
	elapsed := p.Elapsed().Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(p.read) / elapsed
}

func (p *Progress) Stats() Stats {
	return Stats{
		FramesRead:    p.read,
		FramesWritten: p.written,
		FramesSkipped: p.skipped,
		Elapsed:       p.Elapsed(),
		FPS:           p.FPS(),
	}
}
