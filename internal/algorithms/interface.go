// Per-frame transform algorithms built on GoCV
package algorithms

import (
	"fmt"
	"sort"

	"gocv.io/x/gocv"
)

// Algorithm defines a stateless frame transform. Apply never modifies input
// and always returns a newly allocated Mat owned by the caller.
type Algorithm interface {
	Apply(input gocv.Mat, params map[string]interface{}) (gocv.Mat, error)
	GetDefaultParams() map[string]interface{}
	GetName() string
	GetDescription() string
	Validate(params map[string]interface{}) error
	GetParameterInfo() []ParameterInfo
}

// ParameterInfo describes a parameter for help output and config validation
type ParameterInfo struct {
	Name        string      `json:"name" yaml:"name"`
	Type        string      `json:"type" yaml:"type"` // "int", "float", "bool", "enum"
	Min         interface{} `json:"min,omitempty" yaml:"min,omitempty"`
	Max         interface{} `json:"max,omitempty" yaml:"max,omitempty"`
	Default     interface{} `json:"default" yaml:"default"`
	Description string      `json:"description" yaml:"description"`
	Options     []string    `json:"options,omitempty" yaml:"options,omitempty"`
}

var algorithms = make(map[string]Algorithm)

func Register(name string, algorithm Algorithm) {
	algorithms[name] = algorithm
}

func Get(name string) (Algorithm, bool) {
	algorithm, exists := algorithms[name]
	return algorithm, exists
}

func Apply(name string, input gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	algorithm, exists := algorithms[name]
	if !exists {
		return gocv.NewMat(), fmt.Errorf("algorithm not found: %s", name)
	}

	return algorithm.Apply(input, params)
}

func ValidateParameters(name string, params map[string]interface{}) error {
	algorithm, exists := algorithms[name]
	if !exists {
		return fmt.Errorf("algorithm not found: %s", name)
	}

	for key := range params {
		if !hasParameter(algorithm, key) {
			return fmt.Errorf("%s: unknown parameter %q", name, key)
		}
	}

	return algorithm.Validate(params)
}

func IsValidAlgorithm(name string) bool {
	_, exists := algorithms[name]
	return exists
}

// Names returns the registered algorithm names in sorted order
func Names() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func GetAlgorithmsByCategory() map[string][]string {
	return map[string][]string{
		"Color": {
			"grayscale",
			"hls",
			"hsv",
		},
		"Binarization": {
			"adaptive_threshold",
			"otsu",
		},
		"Edges": {
			"laplacian",
		},
		"Filters": {
			"gaussian_blur",
			"median_blur",
			"bilateral",
			"equalize_hist",
		},
		"Morphology": {
			"erosion",
			"dilation",
			"opening",
			"closing",
		},
		"Geometry": {
			"resize",
		},
	}
}

func hasParameter(algorithm Algorithm, key string) bool {
	for _, info := range algorithm.GetParameterInfo() {
		if info.Name == key {
			return true
		}
	}
	return false
}

func init() {
	Register("grayscale", NewGrayscale())
	Register("hls", NewHLS())
	Register("hsv", NewHSV())

	Register("adaptive_threshold", NewAdaptiveThreshold())
	Register("otsu", NewOtsu())

	Register("laplacian", NewLaplacian())

	Register("gaussian_blur", NewGaussianFilter())
	Register("median_blur", NewMedianFilter())
	Register("bilateral", NewBilateralFilter())
	Register("equalize_hist", NewHistogramEqualization())

	Register("erosion", NewErosion())
	Register("dilation", NewDilation())
	Register("opening", NewOpening())
	Register("closing", NewClosing())

	Register("resize", NewResize())
}
