// Color space conversions and geometry
package algorithms

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ColorConversion maps a 3-channel BGR frame into another color space
type ColorConversion struct {
	name        string
	description string
	code        gocv.ColorConversionCode
}

// NewGrayscale creates the luminance-weighted BGR to gray reduction
func NewGrayscale() *ColorConversion {
	return &ColorConversion{
		name:        "Grayscale",
		description: "Luminance-weighted reduction of BGR to a single channel",
		code:        gocv.ColorBGRToGray,
	}
}

func NewHLS() *ColorConversion {
	return &ColorConversion{
		name:        "HLS Color Space",
		description: "Hue, lightness, saturation remapping of BGR",
		code:        gocv.ColorBGRToHLS,
	}
}

func NewHSV() *ColorConversion {
	return &ColorConversion{
		name:        "HSV Color Space",
		description: "Hue, saturation, value remapping of BGR",
		code:        gocv.ColorBGRToHSV,
	}
}

func (c *ColorConversion) Apply(input gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	if input.Empty() {
		return gocv.NewMat(), fmt.Errorf("input image is empty")
	}

	if input.Channels() == 1 && c.code == gocv.ColorBGRToGray {
		return input.Clone(), nil
	}
	if input.Channels() != 3 {
		return gocv.NewMat(), fmt.Errorf("%s requires 3 channels, got %d", c.name, input.Channels())
	}

	output := gocv.NewMat()
	if err := gocv.CvtColor(input, &output, c.code); err != nil {
		output.Close()
		return gocv.NewMat(), fmt.Errorf("%s: %w", c.name, err)
	}

	return output, nil
}

func (c *ColorConversion) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{}
}

func (c *ColorConversion) GetName() string {
	return c.name
}

func (c *ColorConversion) GetDescription() string {
	return c.description
}

func (c *ColorConversion) Validate(params map[string]interface{}) error {
	return nil
}

func (c *ColorConversion) GetParameterInfo() []ParameterInfo {
	return nil
}

// Resize scales a frame to a fixed size
type Resize struct{}

func NewResize() *Resize {
	return &Resize{}
}

func (r *Resize) Apply(input gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	if input.Empty() {
		return gocv.NewMat(), fmt.Errorf("input image is empty")
	}

	width := intParam(params, "width", 540)
	height := intParam(params, "height", 380)
	if width <= 0 || height <= 0 {
		return gocv.NewMat(), fmt.Errorf("invalid target size: %dx%d", width, height)
	}

	interpolation := gocv.InterpolationCubic
	switch stringParam(params, "interpolation", "cubic") {
	case "linear":
		interpolation = gocv.InterpolationLinear
	case "nearest":
		interpolation = gocv.InterpolationNearestNeighbor
	case "area":
		interpolation = gocv.InterpolationArea
	}

	output := gocv.NewMat()
	if err := gocv.Resize(input, &output, image.Pt(width, height), 0, 0, interpolation); err != nil {
		output.Close()
		return gocv.NewMat(), fmt.Errorf("resize to %dx%d: %w", width, height, err)
	}

	return output, nil
}

func (r *Resize) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{
		"width":         540.0,
		"height":        380.0,
		"interpolation": "cubic",
	}
}

func (r *Resize) GetName() string {
	return "Resize"
}

func (r *Resize) GetDescription() string {
	return "Scale the frame to a fixed width and height"
}

func (r *Resize) Validate(params map[string]interface{}) error {
	if err := checkRange(params, "width", 1, 16384); err != nil {
		return err
	}
	if err := checkRange(params, "height", 1, 16384); err != nil {
		return err
	}
	return checkOption(params, "interpolation", "cubic", "linear", "nearest", "area")
}

func (r *Resize) GetParameterInfo() []ParameterInfo {
	return []ParameterInfo{
		{
			Name:        "width",
			Type:        "int",
			Min:         1.0,
			Max:         16384.0,
			Default:     540.0,
			Description: "Target width in pixels",
		},
		{
			Name:        "height",
			Type:        "int",
			Min:         1.0,
			Max:         16384.0,
			Default:     380.0,
			Description: "Target height in pixels",
		},
		{
			Name:        "interpolation",
			Type:        "enum",
			Default:     "cubic",
			Description: "Interpolation method",
			Options:     []string{"cubic", "linear", "nearest", "area"},
		},
	}
}
