// Output quality measured against the source frame
package metrics

import (
	"fmt"
	"math"
	"sort"

	"gocv.io/x/gocv"
)

// maxPSNR is reported for identical frames instead of +Inf
const maxPSNR = 100.0

// Metric compares a processed frame with the frame it was derived from
type Metric interface {
	Calculate(reference, processed gocv.Mat) (float64, error)
	GetName() string
	GetDescription() string
	IsHigherBetter() bool
}

// Evaluator manages and calculates multiple metrics
type Evaluator struct {
	metrics map[string]Metric
}

func NewEvaluator() *Evaluator {
	e := &Evaluator{
		metrics: make(map[string]Metric),
	}
	e.Register("mse", NewMSE())
	e.Register("psnr", NewPSNR())
	e.Register("contrast_ratio", NewContrastRatio())
	e.Register("sharpness", NewSharpness())
	return e
}

func (e *Evaluator) Register(name string, metric Metric) {
	e.metrics[name] = metric
}

func (e *Evaluator) Calculate(name string, reference, processed gocv.Mat) (float64, error) {
	metric, exists := e.metrics[name]
	if !exists {
		return 0, fmt.Errorf("metric not found: %s", name)
	}
	return metric.Calculate(reference, processed)
}

// CalculateAll returns every metric that could be computed for the pair.
// Metrics that need equal frame sizes are left out when the sizes differ.
func (e *Evaluator) CalculateAll(reference, processed gocv.Mat) map[string]float64 {
	results := make(map[string]float64)

	for name, metric := range e.metrics {
		if value, err := metric.Calculate(reference, processed); err == nil {
			results[name] = value
		}
	}

	return results
}

// Names returns the registered metric names in sorted order
func (e *Evaluator) Names() []string {
	names := make([]string, 0, len(e.metrics))
	for name := range e.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MSE is the mean squared error of the luminance planes
type MSE struct{}

func NewMSE() *MSE {
	return &MSE{}
}

func (m *MSE) Calculate(reference, processed gocv.Mat) (float64, error) {
	return meanSquaredError(reference, processed)
}

func (m *MSE) GetName() string        { return "MSE" }
func (m *MSE) GetDescription() string { return "Mean Squared Error between frames" }
func (m *MSE) IsHigherBetter() bool   { return false }

// PSNR is the peak signal-to-noise ratio in dB
type PSNR struct{}

func NewPSNR() *PSNR {
	return &PSNR{}
}

func (p *PSNR) Calculate(reference, processed gocv.Mat) (float64, error) {
	mse, err := meanSquaredError(reference, processed)
	if err != nil {
		return 0, err
	}
	if mse == 0 {
		return maxPSNR, nil
	}

	return math.Min(maxPSNR, 20*math.Log10(255.0/math.Sqrt(mse))), nil
}

func (p *PSNR) GetName() string        { return "PSNR" }
func (p *PSNR) GetDescription() string { return "Peak Signal-to-Noise Ratio" }
func (p *PSNR) IsHigherBetter() bool   { return true }

// ContrastRatio is the luminance standard deviation of the processed frame
// over that of the reference
type ContrastRatio struct{}

func NewContrastRatio() *ContrastRatio {
	return &ContrastRatio{}
}

func (c *ContrastRatio) Calculate(reference, processed gocv.Mat) (float64, error) {
	refContrast, err := contrast(reference)
	if err != nil {
		return 0, err
	}
	procContrast, err := contrast(processed)
	if err != nil {
		return 0, err
	}

	if refContrast == 0 {
		return 1.0, nil
	}
	return procContrast / refContrast, nil
}

func (c *ContrastRatio) GetName() string        { return "Contrast Ratio" }
func (c *ContrastRatio) GetDescription() string { return "Ratio of contrast preservation" }
func (c *ContrastRatio) IsHigherBetter() bool   { return true }

// Sharpness is the Laplacian variance of the processed frame over that of the reference
type Sharpness struct{}

func NewSharpness() *Sharpness {
	return &Sharpness{}
}

func (s *Sharpness) Calculate(reference, processed gocv.Mat) (float64, error) {
	refSharpness, err := laplacianVariance(reference)
	if err != nil {
		return 0, err
	}
	procSharpness, err := laplacianVariance(processed)
	if err != nil {
		return 0, err
	}

	if refSharpness == 0 {
		return 1.0, nil
	}
	return procSharpness / refSharpness, nil
}

func (s *Sharpness) GetName() string        { return "Sharpness" }
func (s *Sharpness) GetDescription() string { return "Edge preservation measure" }
func (s *Sharpness) IsHigherBetter() bool   { return true }

func meanSquaredError(reference, processed gocv.Mat) (float64, error) {
	if reference.Empty() || processed.Empty() {
		return 0, fmt.Errorf("empty images")
	}
	if reference.Rows() != processed.Rows() || reference.Cols() != processed.Cols() {
		return 0, fmt.Errorf("image dimensions mismatch: %dx%d vs %dx%d",
			reference.Cols(), reference.Rows(), processed.Cols(), processed.Rows())
	}

	ref, err := luminance(reference)
	if err != nil {
		return 0, err
	}
	proc, err := luminance(processed)
	if err != nil {
		return 0, err
	}

	sumSquaredDiff := 0.0
	for i := range ref {
		diff := float64(ref[i]) - float64(proc[i])
		sumSquaredDiff += diff * diff
	}

	return sumSquaredDiff / float64(len(ref)), nil
}

func contrast(input gocv.Mat) (float64, error) {
	if input.Empty() {
		return 0, fmt.Errorf("empty image")
	}

	pixels, err := luminance(input)
	if err != nil {
		return 0, err
	}

	mean := 0.0
	for _, v := range pixels {
		mean += float64(v)
	}
	mean /= float64(len(pixels))

	variance := 0.0
	for _, v := range pixels {
		diff := float64(v) - mean
		variance += diff * diff
	}

	return math.Sqrt(variance / float64(len(pixels))), nil
}

func laplacianVariance(input gocv.Mat) (float64, error) {
	if input.Empty() {
		return 0, fmt.Errorf("empty image")
	}

	gray, err := grayCopy(input)
	if err != nil {
		return 0, err
	}
	defer gray.Close()

	laplacian := gocv.NewMat()
	defer laplacian.Close()
	if err := gocv.Laplacian(gray, &laplacian, gocv.MatTypeCV64F, 1, 1, 0, gocv.BorderDefault); err != nil {
		return 0, fmt.Errorf("laplacian: %w", err)
	}

	total := laplacian.Rows() * laplacian.Cols()
	mean := 0.0
	for y := 0; y < laplacian.Rows(); y++ {
		for x := 0; x < laplacian.Cols(); x++ {
			mean += laplacian.GetDoubleAt(y, x)
		}
	}
	mean /= float64(total)

	variance := 0.0
	for y := 0; y < laplacian.Rows(); y++ {
		for x := 0; x < laplacian.Cols(); x++ {
			diff := laplacian.GetDoubleAt(y, x) - mean
			variance += diff * diff
		}
	}

	return variance / float64(total), nil
}

// luminance returns the 8-bit gray plane of input
func luminance(input gocv.Mat) ([]byte, error) {
	gray, err := grayCopy(input)
	if err != nil {
		return nil, err
	}
	defer gray.Close()

	return gray.ToBytes(), nil
}

func grayCopy(input gocv.Mat) (gocv.Mat, error) {
	gray := gocv.NewMat()

	var err error
	switch input.Channels() {
	case 1:
		input.CopyTo(&gray)
	case 3:
		err = gocv.CvtColor(input, &gray, gocv.ColorBGRToGray)
	case 4:
		err = gocv.CvtColor(input, &gray, gocv.ColorBGRAToGray)
	default:
		err = fmt.Errorf("unsupported channel count: %d", input.Channels())
	}
	if err != nil {
		gray.Close()
		return gocv.NewMat(), err
	}

	if gray.Type() != gocv.MatTypeCV8U {
		converted := gocv.NewMat()
		gray.ConvertTo(&converted, gocv.MatTypeCV8U)
		gray.Close()
		gray = converted
	}

	return gray, nil
}

// QualityTracker accumulates metric values over sampled frames
type QualityTracker struct {
	evaluator *Evaluator
	sums      map[string]float64
	counts    map[string]int
	samples   int
}

func NewQualityTracker(evaluator *Evaluator) *QualityTracker {
	return &QualityTracker{
		evaluator: evaluator,
		sums:      make(map[string]float64),
		counts:    make(map[string]int),
	}
}

// Sample evaluates one frame pair and returns the values that were computed
func (q *QualityTracker) Sample(reference, processed gocv.Mat) map[string]float64 {
	values := q.evaluator.CalculateAll(reference, processed)
	for name, value := range values {
		q.sums[name] += value
		q.counts[name]++
	}
	q.samples++
	return values
}

func (q *QualityTracker) Samples() int {
	return q.samples
}

// Means returns the average of every metric over the frames it was computed for
func (q *QualityTracker) Means() map[string]float64 {
	means := make(map[string]float64, len(q.sums))
	for name, sum := range q.sums {
		means[name] = sum / float64(q.counts[name])
	}
	return means
}
