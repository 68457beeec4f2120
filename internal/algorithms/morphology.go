// Morphological operations algorithms
package algorithms

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Morphology applies one morphological operation with a structuring element
type Morphology struct {
	name        string
	description string
	op          gocv.MorphType
}

// NewErosion creates a new erosion algorithm
func NewErosion() *Morphology {
	return &Morphology{
		name:        "Erosion",
		description: "Shrink bright regions",
		op:          gocv.MorphErode,
	}
}

// NewDilation creates a new dilation algorithm
func NewDilation() *Morphology {
	return &Morphology{
		name:        "Dilation",
		description: "Grow bright regions",
		op:          gocv.MorphDilate,
	}
}

// NewOpening creates a new opening algorithm
func NewOpening() *Morphology {
	return &Morphology{
		name:        "Opening",
		description: "Erosion followed by dilation, removes small bright specks",
		op:          gocv.MorphOpen,
	}
}

// NewClosing creates a new closing algorithm
func NewClosing() *Morphology {
	return &Morphology{
		name:        "Closing",
		description: "Dilation followed by erosion, fills small dark holes",
		op:          gocv.MorphClose,
	}
}

func (m *Morphology) Apply(input gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	if input.Empty() {
		return gocv.NewMat(), fmt.Errorf("input image is empty")
	}

	kernelSize := intParam(params, "kernel_size", 3)
	iterations := intParam(params, "iterations", 1)
	if iterations < 1 {
		iterations = 1
	}

	shape := gocv.MorphRect
	switch stringParam(params, "shape", "rect") {
	case "ellipse":
		shape = gocv.MorphEllipse
	case "cross":
		shape = gocv.MorphCross
	}

	kernel := gocv.GetStructuringElement(shape, image.Pt(kernelSize, kernelSize))
	defer kernel.Close()

	output := input.Clone()
	for i := 0; i < iterations; i++ {
		next := gocv.NewMat()
		if err := gocv.MorphologyEx(output, &next, m.op, kernel); err != nil {
			next.Close()
			output.Close()
			return gocv.NewMat(), fmt.Errorf("%s: %w", m.name, err)
		}
		output.Close()
		output = next
	}

	return output, nil
}

func (m *Morphology) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{
		"kernel_size": 3.0,
		"iterations":  1.0,
		"shape":       "rect",
	}
}

func (m *Morphology) GetName() string {
	return m.name
}

func (m *Morphology) GetDescription() string {
	return m.description
}

func (m *Morphology) Validate(params map[string]interface{}) error {
	if err := checkRange(params, "kernel_size", 1, 21); err != nil {
		return err
	}
	if err := checkRange(params, "iterations", 1, 10); err != nil {
		return err
	}
	return checkOption(params, "shape", "rect", "ellipse", "cross")
}

func (m *Morphology) GetParameterInfo() []ParameterInfo {
	return []ParameterInfo{
		{
			Name:        "kernel_size",
			Type:        "int",
			Min:         1.0,
			Max:         21.0,
			Default:     3.0,
			Description: "Size of the structuring element",
		},
		{
			Name:        "iterations",
			Type:        "int",
			Min:         1.0,
			Max:         10.0,
			Default:     1.0,
			Description: "Number of times the operation is applied",
		},
		{
			Name:        "shape",
			Type:        "enum",
			Default:     "rect",
			Description: "Structuring element shape",
			Options:     []string{"rect", "ellipse", "cross"},
		},
	}
}
