// Binarization and edge detection using GoCV built-ins
package algorithms

import (
	"fmt"

	"gocv.io/x/gocv"
)

// AdaptiveThreshold binarizes each pixel against a local neighborhood statistic
type AdaptiveThreshold struct{}

func NewAdaptiveThreshold() *AdaptiveThreshold {
	return &AdaptiveThreshold{}
}

func (a *AdaptiveThreshold) Apply(input gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	if input.Empty() {
		return gocv.NewMat(), fmt.Errorf("input image is empty")
	}

	gray, err := ensureGrayscale(input)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer releaseIfCopy(gray, input)

	maxValue := floatParam(params, "max_value", 255)
	blockSize := oddKernel(intParam(params, "block_size", 11))
	C := floatParam(params, "C", 2)

	method := gocv.AdaptiveThresholdMean
	if stringParam(params, "method", "mean") == "gaussian" {
		method = gocv.AdaptiveThresholdGaussian
	}

	thresholdType := gocv.ThresholdBinaryInv
	if stringParam(params, "type", "binary_inv") == "binary" {
		thresholdType = gocv.ThresholdBinary
	}

	output := gocv.NewMat()
	if err := gocv.AdaptiveThreshold(gray, &output, float32(maxValue), method, thresholdType, blockSize, float32(C)); err != nil {
		output.Close()
		return gocv.NewMat(), fmt.Errorf("adaptive threshold: %w", err)
	}

	return output, nil
}

func (a *AdaptiveThreshold) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{
		"max_value":  255.0,
		"block_size": 11.0,
		"C":          2.0,
		"method":     "mean",
		"type":       "binary_inv",
	}
}

func (a *AdaptiveThreshold) GetName() string {
	return "Adaptive Threshold"
}

func (a *AdaptiveThreshold) GetDescription() string {
	return "Local mean or gaussian weighted binarization"
}

func (a *AdaptiveThreshold) Validate(params map[string]interface{}) error {
	if err := checkRange(params, "max_value", 0, 255); err != nil {
		return err
	}
	if err := checkRange(params, "block_size", 3, 101); err != nil {
		return err
	}
	if err := checkRange(params, "C", -50, 50); err != nil {
		return err
	}
	if err := checkOption(params, "method", "mean", "gaussian"); err != nil {
		return err
	}
	return checkOption(params, "type", "binary", "binary_inv")
}

func (a *AdaptiveThreshold) GetParameterInfo() []ParameterInfo {
	return []ParameterInfo{
		{
			Name:        "max_value",
			Type:        "float",
			Min:         0.0,
			Max:         255.0,
			Default:     255.0,
			Description: "Value assigned to pixels passing the threshold",
		},
		{
			Name:        "block_size",
			Type:        "int",
			Min:         3.0,
			Max:         101.0,
			Default:     11.0,
			Description: "Size of neighborhood area (odd)",
		},
		{
			Name:        "C",
			Type:        "float",
			Min:         -50.0,
			Max:         50.0,
			Default:     2.0,
			Description: "Constant subtracted from the local statistic",
		},
		{
			Name:        "method",
			Type:        "enum",
			Default:     "mean",
			Description: "Local statistic",
			Options:     []string{"mean", "gaussian"},
		},
		{
			Name:        "type",
			Type:        "enum",
			Default:     "binary_inv",
			Description: "Output polarity",
			Options:     []string{"binary", "binary_inv"},
		},
	}
}

// Otsu applies a global Otsu binarization
type Otsu struct{}

func NewOtsu() *Otsu {
	return &Otsu{}
}

func (o *Otsu) Apply(input gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	if input.Empty() {
		return gocv.NewMat(), fmt.Errorf("input image is empty")
	}

	gray, err := ensureGrayscale(input)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer releaseIfCopy(gray, input)

	maxValue := floatParam(params, "max_value", 255)

	output := gocv.NewMat()
	gocv.Threshold(gray, &output, 0, float32(maxValue), gocv.ThresholdBinary+gocv.ThresholdOtsu)

	return output, nil
}

func (o *Otsu) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{
		"max_value": 255.0,
	}
}

func (o *Otsu) GetName() string {
	return "Otsu Threshold"
}

func (o *Otsu) GetDescription() string {
	return "Global threshold chosen by Otsu's method"
}

func (o *Otsu) Validate(params map[string]interface{}) error {
	return checkRange(params, "max_value", 0, 255)
}

func (o *Otsu) GetParameterInfo() []ParameterInfo {
	return []ParameterInfo{
		{
			Name:        "max_value",
			Type:        "float",
			Min:         0.0,
			Max:         255.0,
			Default:     255.0,
			Description: "Maximum output value",
		},
	}
}

// Laplacian computes a gradient magnitude edge map
type Laplacian struct{}

func NewLaplacian() *Laplacian {
	return &Laplacian{}
}

func (l *Laplacian) Apply(input gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	if input.Empty() {
		return gocv.NewMat(), fmt.Errorf("input image is empty")
	}

	gray, err := ensureGrayscale(input)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer releaseIfCopy(gray, input)

	kernelSize := oddKernel(intParam(params, "kernel_size", 1))
	scale := floatParam(params, "scale", 1)

	// 64-bit depth keeps negative responses before taking the absolute value
	edges := gocv.NewMat()
	defer edges.Close()
	if err := gocv.Laplacian(gray, &edges, gocv.MatTypeCV64F, kernelSize, scale, 0, gocv.BorderDefault); err != nil {
		return gocv.NewMat(), fmt.Errorf("laplacian: %w", err)
	}

	output := gocv.NewMat()
	if err := gocv.ConvertScaleAbs(edges, &output, 1, 0); err != nil {
		output.Close()
		return gocv.NewMat(), fmt.Errorf("convert laplacian to 8 bit: %w", err)
	}

	return output, nil
}

func (l *Laplacian) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{
		"kernel_size": 1.0,
		"scale":       1.0,
	}
}

func (l *Laplacian) GetName() string {
	return "Laplacian Edge"
}

func (l *Laplacian) GetDescription() string {
	return "Second derivative edge response scaled to 8 bit"
}

func (l *Laplacian) Validate(params map[string]interface{}) error {
	if err := checkRange(params, "kernel_size", 1, 31); err != nil {
		return err
	}
	return checkRange(params, "scale", 0.01, 100)
}

func (l *Laplacian) GetParameterInfo() []ParameterInfo {
	return []ParameterInfo{
		{
			Name:        "kernel_size",
			Type:        "int",
			Min:         1.0,
			Max:         31.0,
			Default:     1.0,
			Description: "Aperture size (odd)",
		},
		{
			Name:        "scale",
			Type:        "float",
			Min:         0.01,
			Max:         100.0,
			Default:     1.0,
			Description: "Scale factor applied to the response",
		},
	}
}
