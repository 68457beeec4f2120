// Smoothing and contrast filters
package algorithms

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// GaussianFilter implements Gaussian blur filter
type GaussianFilter struct{}

// NewGaussianFilter creates a new Gaussian filter algorithm
func NewGaussianFilter() *GaussianFilter {
	return &GaussianFilter{}
}

func (g *GaussianFilter) Apply(input gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	if input.Empty() {
		return gocv.NewMat(), fmt.Errorf("input image is empty")
	}

	kernelSize := oddKernel(intParam(params, "kernel_size", 5))
	// Zero sigma lets OpenCV derive it from the kernel size
	sigmaX := floatParam(params, "sigma_x", 0)
	sigmaY := floatParam(params, "sigma_y", 0)

	output := gocv.NewMat()
	if err := gocv.GaussianBlur(input, &output, image.Pt(kernelSize, kernelSize), sigmaX, sigmaY, gocv.BorderDefault); err != nil {
		output.Close()
		return gocv.NewMat(), fmt.Errorf("gaussian blur: %w", err)
	}

	return output, nil
}

func (g *GaussianFilter) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{
		"kernel_size": 5.0,
		"sigma_x":     0.0,
		"sigma_y":     0.0,
	}
}

func (g *GaussianFilter) GetName() string {
	return "Gaussian Blur"
}

func (g *GaussianFilter) GetDescription() string {
	return "Gaussian blur for general noise reduction"
}

func (g *GaussianFilter) Validate(params map[string]interface{}) error {
	if err := checkRange(params, "kernel_size", 1, 31); err != nil {
		return err
	}
	if err := checkRange(params, "sigma_x", 0, 10); err != nil {
		return err
	}
	return checkRange(params, "sigma_y", 0, 10)
}

func (g *GaussianFilter) GetParameterInfo() []ParameterInfo {
	return []ParameterInfo{
		{
			Name:        "kernel_size",
			Type:        "int",
			Min:         1.0,
			Max:         31.0,
			Default:     5.0,
			Description: "Size of the Gaussian kernel (must be odd)",
		},
		{
			Name:        "sigma_x",
			Type:        "float",
			Min:         0.0,
			Max:         10.0,
			Default:     0.0,
			Description: "Standard deviation in X direction, 0 derives it from the kernel",
		},
		{
			Name:        "sigma_y",
			Type:        "float",
			Min:         0.0,
			Max:         10.0,
			Default:     0.0,
			Description: "Standard deviation in Y direction, 0 uses sigma_x",
		},
	}
}

// MedianFilter implements median filter
type MedianFilter struct{}

// NewMedianFilter creates a new median filter algorithm
func NewMedianFilter() *MedianFilter {
	return &MedianFilter{}
}

func (m *MedianFilter) Apply(input gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	if input.Empty() {
		return gocv.NewMat(), fmt.Errorf("input image is empty")
	}

	kernelSize := oddKernel(intParam(params, "kernel_size", 5))

	output := gocv.NewMat()
	if err := gocv.MedianBlur(input, &output, kernelSize); err != nil {
		output.Close()
		return gocv.NewMat(), fmt.Errorf("median blur: %w", err)
	}

	return output, nil
}

func (m *MedianFilter) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{
		"kernel_size": 5.0,
	}
}

func (m *MedianFilter) GetName() string {
	return "Median Blur"
}

func (m *MedianFilter) GetDescription() string {
	return "Median filter to remove salt-and-pepper noise"
}

func (m *MedianFilter) Validate(params map[string]interface{}) error {
	return checkRange(params, "kernel_size", 3, 15)
}

func (m *MedianFilter) GetParameterInfo() []ParameterInfo {
	return []ParameterInfo{
		{
			Name:        "kernel_size",
			Type:        "int",
			Min:         3.0,
			Max:         15.0,
			Default:     5.0,
			Description: "Size of the median filter kernel (must be odd)",
		},
	}
}

// BilateralFilter implements bilateral filter
type BilateralFilter struct{}

// NewBilateralFilter creates a new bilateral filter algorithm
func NewBilateralFilter() *BilateralFilter {
	return &BilateralFilter{}
}

func (b *BilateralFilter) Apply(input gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	if input.Empty() {
		return gocv.NewMat(), fmt.Errorf("input image is empty")
	}

	d := intParam(params, "d", 9)
	sigmaColor := floatParam(params, "sigma_color", 75)
	sigmaSpace := floatParam(params, "sigma_space", 75)

	output := gocv.NewMat()
	if err := gocv.BilateralFilter(input, &output, d, sigmaColor, sigmaSpace); err != nil {
		output.Close()
		return gocv.NewMat(), fmt.Errorf("bilateral filter: %w", err)
	}

	return output, nil
}

func (b *BilateralFilter) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{
		"d":           9.0,
		"sigma_color": 75.0,
		"sigma_space": 75.0,
	}
}

func (b *BilateralFilter) GetName() string {
	return "Bilateral Filter"
}

func (b *BilateralFilter) GetDescription() string {
	return "Bilateral filter for edge-preserving smoothing"
}

func (b *BilateralFilter) Validate(params map[string]interface{}) error {
	if err := checkRange(params, "d", 3, 15); err != nil {
		return err
	}
	if err := checkRange(params, "sigma_color", 10, 200); err != nil {
		return err
	}
	return checkRange(params, "sigma_space", 10, 200)
}

func (b *BilateralFilter) GetParameterInfo() []ParameterInfo {
	return []ParameterInfo{
		{
			Name:        "d",
			Type:        "int",
			Min:         3.0,
			Max:         15.0,
			Default:     9.0,
			Description: "Diameter of each pixel neighborhood",
		},
		{
			Name:        "sigma_color",
			Type:        "float",
			Min:         10.0,
			Max:         200.0,
			Default:     75.0,
			Description: "Filter sigma in the color space",
		},
		{
			Name:        "sigma_space",
			Type:        "float",
			Min:         10.0,
			Max:         200.0,
			Default:     75.0,
			Description: "Filter sigma in the coordinate space",
		},
	}
}

// HistogramEqualization remaps gray levels so the frame histogram is flat.
// Statistics are computed per frame; nothing carries over between calls.
type HistogramEqualization struct{}

func NewHistogramEqualization() *HistogramEqualization {
	return &HistogramEqualization{}
}

func (h *HistogramEqualization) Apply(input gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	if input.Empty() {
		return gocv.NewMat(), fmt.Errorf("input image is empty")
	}

	gray, err := ensureGrayscale(input)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer releaseIfCopy(gray, input)

	output := gocv.NewMat()
	if err := gocv.EqualizeHist(gray, &output); err != nil {
		output.Close()
		return gocv.NewMat(), fmt.Errorf("equalize histogram: %w", err)
	}

	return output, nil
}

func (h *HistogramEqualization) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{}
}

func (h *HistogramEqualization) GetName() string {
	return "Histogram Equalized"
}

func (h *HistogramEqualization) GetDescription() string {
	return "Global per-frame histogram equalization"
}

func (h *HistogramEqualization) Validate(params map[string]interface{}) error {
	return nil
}

func (h *HistogramEqualization) GetParameterInfo() []ParameterInfo {
	return nil
}
