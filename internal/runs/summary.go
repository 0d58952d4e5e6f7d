package runs

import (
	"github.com/aristath/mjhmc/internal/sampler"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Summary condenses a run's samples.
type Summary struct {
	Samples  int           `json:"samples"` // number of emitted columns
	Mean     []float64     `json:"mean"`
	Variance []float64     `json:"variance"`
	Stats    sampler.Stats `json:"stats"`
}

// Summarize computes per-dimension moments of samples (one sample per column).
func Summarize(samples *mat.Dense, stats sampler.Stats) Summary {
	s := Summary{Stats: stats}
	if samples == nil || samples.IsEmpty() {
		return s
	}

	rows, cols := samples.Dims()
	s.Samples = cols
	s.Mean = make([]float64, rows)
	s.Variance = make([]float64, rows)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, samples)
		if cols == 1 {
			s.Mean[i] = row[0]
			continue
		}
		s.Mean[i], s.Variance[i] = stat.MeanVariance(row, nil)
	}
	return s
}
