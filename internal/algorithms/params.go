package algorithms

import (
	"fmt"

	"gocv.io/x/gocv"
)

// floatParam reads a numeric parameter. YAML decodes whole numbers as int,
// so both int and float64 are accepted.
func floatParam(params map[string]interface{}, key string, def float64) float64 {
	val, ok := params[key]
	if !ok {
		return def
	}
	switch v := val.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return def
}

func intParam(params map[string]interface{}, key string, def int) int {
	return int(floatParam(params, key, float64(def)))
}

func stringParam(params map[string]interface{}, key string, def string) string {
	if val, ok := params[key]; ok {
		if v, ok := val.(string); ok {
			return v
		}
	}
	return def
}

// checkRange validates an optional numeric parameter against [min, max]
func checkRange(params map[string]interface{}, key string, min, max float64) error {
	val, ok := params[key]
	if !ok {
		return nil
	}
	switch val.(type) {
	case float64, float32, int, int64:
	default:
		return fmt.Errorf("%s must be a number, got %T", key, val)
	}
	v := floatParam(params, key, 0)
	if v < min || v > max {
		return fmt.Errorf("%s must be between %v and %v", key, min, max)
	}
	return nil
}

func checkOption(params map[string]interface{}, key string, options ...string) error {
	val, ok := params[key]
	if !ok {
		return nil
	}
	s, ok := val.(string)
	if !ok {
		return fmt.Errorf("%s must be a string, got %T", key, val)
	}
	for _, option := range options {
		if s == option {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %v", key, options)
}

// oddKernel rounds an even kernel size up, OpenCV requires odd apertures
func oddKernel(size int) int {
	if size%2 == 0 {
		size++
	}
	return size
}

// ensureGrayscale returns input when it already has one channel, otherwise a
// new gray Mat. Callers close the result only when it differs from input.
func ensureGrayscale(input gocv.Mat) (gocv.Mat, error) {
	if input.Channels() == 1 {
		return input, nil
	}
	gray := gocv.NewMat()
	if err := gocv.CvtColor(input, &gray, gocv.ColorBGRToGray); err != nil {
		gray.Close()
		return gocv.NewMat(), fmt.Errorf("convert to grayscale: %w", err)
	}
	return gray, nil
}

func releaseIfCopy(mat, input gocv.Mat) {
	if mat.Ptr() != input.Ptr() {
		mat.Close()
	}
}
