package progress

import "sync"

// MovingAverage keeps the last Window samples and averages them with
// linearly increasing weights, the newest sample weighing the most.
type MovingAverage struct {
	mu      sync.Mutex
	window  int
	samples []float64
}

func NewMovingAverage(window int) *MovingAverage {
	if window < 1 {
		window = 1
	}

	return &MovingAverage{
		window:  window,
		samples: make([]float64, 0, window),
	}
}

func (m *MovingAverage) Add(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.samples) == m.window {
		copy(m.samples, m.samples[1:])
		m.samples = m.samples[:m.window-1]
	}

	m.samples = append(m.samples, v)
}

// Weighted returns the recency-weighted average, 0 without samples.
func (m *MovingAverage) Weighted() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	var sum, weights float64

	for i, v := range m.samples {
		w := float64(i + 1)
		sum += v * w
		weights += w
	}

	if weights == 0 {
		return 0
	}

	return sum / weights
}
