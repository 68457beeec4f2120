// internal/core/pipeline.go
// Ordered, stateless transform chain applied to every frame
package core

import (
	"fmt"
	"image"
	"time"

	"gocv.io/x/gocv"

	"video-processing-pipeline/internal/algorithms"
	"video-processing-pipeline/internal/config"
	"video-processing-pipeline/internal/metrics"
)

// ProcessingStep is one resolved stage of the chain
type ProcessingStep struct {
	Name       string
	Algorithm  string
	Input      string
	Title      string
	Display    bool
	Parameters map[string]interface{}

	algorithm algorithms.Algorithm
}

// Chain applies its steps in fixed order. Each step reads the output of the
// step named by Input and adds its own output to the frame set.
type Chain struct {
	steps   []ProcessingStep
	timings *metrics.StageTimes
}

// NewChain resolves and validates the configured stages once; parameters
// never change afterwards
func NewChain(stages []config.Stage) (*Chain, error) {
	steps := make([]ProcessingStep, 0, len(stages))
	seen := map[string]bool{config.RootStage: true}
	previous := config.RootStage

	for i, stage := range stages {
		if stage.Name == "" {
			return nil, fmt.Errorf("stage %d: name is required", i)
		}
		if seen[stage.Name] {
			return nil, fmt.Errorf("stage %q: duplicate name", stage.Name)
		}

		algorithm, exists := algorithms.Get(stage.Algorithm)
		if !exists {
			return nil, fmt.Errorf("stage %q: unknown algorithm: %s", stage.Name, stage.Algorithm)
		}
		if err := algorithms.ValidateParameters(stage.Algorithm, stage.Params); err != nil {
			return nil, fmt.Errorf("stage %q: invalid parameters: %w", stage.Name, err)
		}

		input := stage.Input
		if input == "" {
			input = previous
		}
		if !seen[input] {
			return nil, fmt.Errorf("stage %q: input %q is not an earlier stage", stage.Name, input)
		}

		title := stage.Title
		if title == "" {
			title = algorithm.GetName()
		}

		steps = append(steps, ProcessingStep{
			Name:       stage.Name,
			Algorithm:  stage.Algorithm,
			Input:      input,
			Title:      title,
			Display:    stage.Display,
			Parameters: stage.Params,
			algorithm:  algorithm,
		})
		seen[stage.Name] = true
		previous = stage.Name
	}

	return &Chain{steps: steps, timings: metrics.NewStageTimes()}, nil
}

// Steps returns a copy of the resolved steps
func (c *Chain) Steps() []ProcessingStep {
	steps := make([]ProcessingStep, len(c.steps))
	copy(steps, c.steps)
	return steps
}

// Timings returns the processing time recorded per step since the last reset
func (c *Chain) Timings() *metrics.StageTimes {
	return c.timings
}

// Has reports whether name is the root frame or a step of the chain
func (c *Chain) Has(name string) bool {
	if name == config.RootStage {
		return true
	}
	for _, step := range c.steps {
		if step.Name == name {
			return true
		}
	}
	return false
}

// Process runs every step on a copy of root. The returned set holds the root
// frame under config.RootStage followed by each step output. On error no
// Mat is leaked and the error wraps ErrFrameDecode.
func (c *Chain) Process(root gocv.Mat) (*FrameSet, error) {
	if err := ValidateFrame(root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFrameDecode, err)
	}

	set := NewFrameSet()
	set.Put(config.RootStage, root.Clone())

	for _, step := range c.steps {
		input, _ := set.Get(step.Input)

		start := time.Now()
		output, err := step.algorithm.Apply(input, step.Parameters)
		c.timings.Observe(step.Name, time.Since(start))
		if err != nil {
			output.Close()
			set.Close()
			return nil, fmt.Errorf("%w: stage %q (%s): %v", ErrFrameDecode, step.Name, step.Algorithm, err)
		}
		if output.Empty() {
			output.Close()
			set.Close()
			return nil, fmt.Errorf("%w: stage %q (%s) returned an empty frame", ErrFrameDecode, step.Name, step.Algorithm)
		}

		set.Put(step.Name, output)
	}

	return set, nil
}

// OutputSize runs the chain on a black frame of the given size and reports
// the dimensions of the named stage output. The probe is not recorded in Timings.
func (c *Chain) OutputSize(rootSize image.Point, stage string) (image.Point, error) {
	if !c.Has(stage) {
		return image.Point{}, fmt.Errorf("unknown stage: %s", stage)
	}

	probe := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), rootSize.Y, rootSize.X, gocv.MatTypeCV8UC3)
	defer probe.Close()

	set, err := c.Process(probe)
	c.timings.Reset()
	if err != nil {
		return image.Point{}, err
	}
	defer set.Close()

	output, _ := set.Get(stage)
	return image.Pt(output.Cols(), output.Rows()), nil
}
