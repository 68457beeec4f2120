package metrics

import (
	"time"
)

// StageTiming is the accumulated processing time of one chain stage
type StageTiming struct {
	Name    string
	Calls   int
	Total   time.Duration
	Slowest time.Duration
}

// Average returns the mean duration per call
func (t StageTiming) Average() time.Duration {
	if t.Calls == 0 {
		return 0
	}
	return t.Total / time.Duration(t.Calls)
}

// StageTimes records per-stage durations in first-seen order.
// Not safe for concurrent use.
type StageTimes struct {
	order   []string
	timings map[string]*StageTiming
}

func NewStageTimes() *StageTimes {
	return &StageTimes{
		timings: make(map[string]*StageTiming),
	}
}

func (s *StageTimes) Observe(stage string, d time.Duration) {
	timing, exists := s.timings[stage]
	if !exists {
		timing = &StageTiming{Name: stage}
		s.timings[stage] = timing
		s.order = append(s.order, stage)
	}

	timing.Calls++
	timing.Total += d
	if d > timing.Slowest {
		timing.Slowest = d
	}
}

// Timings returns a copy of every stage timing
func (s *StageTimes) Timings() []StageTiming {
	timings := make([]StageTiming, 0, len(s.order))
	for _, name := range s.order {
		timings = append(timings, *s.timings[name])
	}
	return timings
}

func (s *StageTimes) Reset() {
	s.order = nil
	s.timings = make(map[string]*StageTiming)
}
