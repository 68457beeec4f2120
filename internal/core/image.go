// Frame containers and validation
package core

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// FrameSet holds the outputs of every stage for one frame, in chain order.
// It owns its Mats; Close releases all of them.
type FrameSet struct {
	names []string
	mats  map[string]gocv.Mat
}

func NewFrameSet() *FrameSet {
	return &FrameSet{
		mats: make(map[string]gocv.Mat),
	}
}

// Put stores mat under name, taking ownership and releasing any previous Mat
func (s *FrameSet) Put(name string, mat gocv.Mat) {
	if old, exists := s.mats[name]; exists {
		old.Close()
	} else {
		s.names = append(s.names, name)
	}
	s.mats[name] = mat
}

// Get returns the Mat stored under name. The Mat stays owned by the set.
func (s *FrameSet) Get(name string) (gocv.Mat, bool) {
	mat, exists := s.mats[name]
	return mat, exists
}

func (s *FrameSet) Names() []string {
	names := make([]string, len(s.names))
	copy(names, s.names)
	return names
}

func (s *FrameSet) Len() int {
	return len(s.names)
}

func (s *FrameSet) Close() {
	for _, mat := range s.mats {
		mat.Close()
	}
	s.mats = make(map[string]gocv.Mat)
	s.names = nil
}

// ValidateFrame validates a decoded frame for basic requirements
func ValidateFrame(mat gocv.Mat) error {
	if mat.Empty() {
		return fmt.Errorf("frame is empty")
	}

	if mat.Cols() <= 0 || mat.Rows() <= 0 {
		return fmt.Errorf("invalid dimensions: %dx%d", mat.Cols(), mat.Rows())
	}

	channels := mat.Channels()
	if channels < 1 || channels > 4 {
		return fmt.Errorf("unsupported channel count: %d", channels)
	}

	const maxDimension = 16384
	if mat.Cols() > maxDimension || mat.Rows() > maxDimension {
		return fmt.Errorf("frame too large: %dx%d (max: %d)", mat.Cols(), mat.Rows(), maxDimension)
	}

	return nil
}

// ConformFrame returns a new 8-bit BGR copy of frame with the given size,
// the layout every sink expects
func ConformFrame(frame gocv.Mat, size image.Point) (gocv.Mat, error) {
	if frame.Empty() {
		return gocv.NewMat(), fmt.Errorf("frame is empty")
	}

	bgr := gocv.NewMat()
	var err error
	switch frame.Channels() {
	case 1:
		err = gocv.CvtColor(frame, &bgr, gocv.ColorGrayToBGR)
	case 3:
		frame.CopyTo(&bgr)
	case 4:
		err = gocv.CvtColor(frame, &bgr, gocv.ColorBGRAToBGR)
	default:
		err = fmt.Errorf("unsupported channel count: %d", frame.Channels())
	}
	if err != nil {
		bgr.Close()
		return gocv.NewMat(), fmt.Errorf("convert to BGR: %w", err)
	}

	if bgr.Type() != gocv.MatTypeCV8UC3 {
		converted := gocv.NewMat()
		bgr.ConvertTo(&converted, gocv.MatTypeCV8UC3)
		bgr.Close()
		bgr = converted
	}

	if bgr.Cols() == size.X && bgr.Rows() == size.Y {
		return bgr, nil
	}

	resized := gocv.NewMat()
	if err := gocv.Resize(bgr, &resized, size, 0, 0, gocv.InterpolationLinear); err != nil {
		bgr.Close()
		resized.Close()
		return gocv.NewMat(), fmt.Errorf("resize to %dx%d: %w", size.X, size.Y, err)
	}
	bgr.Close()

	return resized, nil
}
