// Package metrics measures how far an array is from sorted order.
package metrics

// Metric accumulates a measure over the frames of a run.
type Metric interface {
	Name() string
	Observe(data []int)
	Value() float64
	Reset()
}

// Sortedness returns the fraction of adjacent pairs that are in order. Arrays with fewer
// than two items are fully sorted.
func Sortedness(data []int) float64 {
	if len(data) < 2 {
		return 1
	}
	ordered := 0
	for i := 1; i < len(data); i++ {
		if data[i-1] <= data[i] {
			ordered++
		}
	}
	return float64(ordered) / float64(len(data)-1)
}

// Inversions counts pairs i < j with data[i] > data[j].
func Inversions(data []int) int64 {
	if len(data) < 2 {
		return 0
	}
	buf := make([]int, len(data))
	work := append([]int(nil), data...)
	return countInversions(work, buf)
}

func countInversions(data, buf []int) int64 {
	n := len(data)
	if n < 2 {
		return 0
	}
	mid := n / 2
	count := countInversions(data[:mid], buf[:mid]) + countInversions(data[mid:], buf[mid:])

	i, j, k := 0, mid, 0
	for i < mid && j < n {
		if data[i] <= data[j] {
			buf[k] = data[i]
			i++
		} else {
			buf[k] = data[j]
			count += int64(mid - i)
			j++
		}
		k++
	}
	k += copy(buf[k:], data[i:mid])
	copy(buf[k:], data[j:])
	copy(data, buf[:n])
	return count
}

// Displacement is the mean distance between each value and its index.
func Displacement(data []int) float64 {
	if len(data) == 0 {
		return 0
	}
	total := 0
	for i, v := range data {
		d := v - i
		if d < 0 {
			d = -d
		}
		total += d
	}
	return float64(total) / float64(len(data))
}

// SortednessMetric tracks the latest sortedness together with its minimum over a run.
type SortednessMetric struct {
	samples int
	last    float64
	min     float64
}

func NewSortedness() *SortednessMetric { return &SortednessMetric{} }

func (m *SortednessMetric) Name() string { return "sortedness" }

func (m *SortednessMetric) Observe(data []int) {
	m.last = Sortedness(data)
	if m.samples == 0 || m.last < m.min {
		m.min = m.last
	}
	m.samples++
}

func (m *SortednessMetric) Value() float64 { return m.last }

// Min returns the lowest sortedness observed.
func (m *SortednessMetric) Min() float64 { return m.min }

func (m *SortednessMetric) Reset() {
	m.samples = 0
	m.last = 0
	m.min = 0
}

type InversionsMetric struct {
	last int64
}

func NewInversions() *InversionsMetric { return &InversionsMetric{} }

func (m *InversionsMetric) Name() string { return "inversions" }

func (m *InversionsMetric) Observe(data []int) { m.last = Inversions(data) }

func (m *InversionsMetric) Value() float64 { return float64(m.last) }

func (m *InversionsMetric) Reset() { m.last = 0 }
