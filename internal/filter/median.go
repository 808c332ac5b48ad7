package filter

// WindowSize is the number of samples the median filter looks at. Must be odd.
const WindowSize = 9

// Median reports the median of the most recent WindowSize samples.
//
// The raw window is a FIFO with the oldest sample first. The sorted window
// always holds the same values in ascending order and is maintained
// incrementally, one removal and one insertion per sample.
type Median struct {
	window [WindowSize]int
	sorted [WindowSize]int
}

// NewMedian creates a median filter with an empty history
func NewMedian() *Median {
	m := &Median{}
	m.Reset()
	return m
}

func (m *Median) Kind() Kind { return KindMedian }

// Reset fills the window with the no data marker
func (m *Median) Reset() {
	m.fill(NoData)
}

// Filter feeds one sample and returns the current median.
//
// A negative sample resets the window. The first valid sample after a reset
// fills the whole window so the output does not ramp up slowly from nothing.
func (m *Median) Filter(sample int) int {
	if sample < 0 {
		m.Reset()
		return NoData
	}

	if m.window[0] < 0 {
		m.fill(sample)
		return sample
	}

	dropped := m.window[0]
	copy(m.window[:], m.window[1:])
	m.window[WindowSize-1] = sample

	if dropped != sample {
		m.replace(dropped, sample)
	}

	return m.sorted[WindowSize/2]
}

// Stable is true once every sample in the window has the same value
func (m *Median) Stable() bool {
	return m.sorted[0] == m.sorted[WindowSize-1]
}

// Window returns a copy of the raw samples, oldest first
func (m *Median) Window() []int {
	out := make([]int, WindowSize)
	copy(out, m.window[:])
	return out
}

// Sorted returns a copy of the ordered samples
func (m *Median) Sorted() []int {
	out := make([]int, WindowSize)
	copy(out, m.sorted[:])
	return out
}

func (m *Median) fill(value int) {
	for i := range m.window {
		m.window[i] = value
		m.sorted[i] = value
	}
}

// replace removes one occurrence of dropped from the sorted window and
// inserts sample, moving the hole from the removal slot to the insertion
// slot in a single pass.
func (m *Median) replace(dropped, sample int) {
	i := 0
	for i < WindowSize-1 && m.sorted[i] != dropped {
		i++
	}

	for i > 0 && m.sorted[i-1] > sample {
		m.sorted[i] = m.sorted[i-1]
		i--
	}
	for i < WindowSize-1 && m.sorted[i+1] < sample {
		m.sorted[i] = m.sorted[i+1]
		i++
	}

	m.sorted[i] = sample
}
