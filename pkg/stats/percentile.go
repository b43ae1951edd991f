package stats

import (
	"math"
	"slices"
)

// Percentile возвращает p-й перцентиль с линейной интерполяцией между соседними
// значениями. Для пустого набора возвращает nil.
func Percentile(values []float64, p float64) *float64 {
	if len(values) == 0 {
		return nil
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	p = math.Max(0, math.Min(100, p))
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))

	result := sorted[lo] + (sorted[hi]-sorted[lo])*(rank-float64(lo))
	return &result
}

// Mean среднее арифметическое, nil для пустого набора
func Mean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	return &mean
}

func Int64s(values []int64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}

// Round округляет до n знаков после запятой
func Round(v float64, n int) float64 {
	pow := math.Pow(10, float64(n))
	return math.Round(v*pow) / pow
}
