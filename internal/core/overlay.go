package core

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

var overlayColor = color.RGBA{R: 0, G: 255, B: 0, A: 0}

// DrawOverlay writes the frame counter and the effective processing rate
// onto frame in place. total is omitted when unknown.
func DrawOverlay(frame *gocv.Mat, number, total int, fps float64) error {
	counter := fmt.Sprintf("Frame: %d", number)
	if total > 0 {
		counter = fmt.Sprintf("Frame: %d/%d", number, total)
	}

	if err := gocv.PutText(frame, counter, image.Pt(50, 50), gocv.FontHersheySimplex, 1, overlayColor, 2); err != nil {
		return fmt.Errorf("draw frame counter: %w", err)
	}
	if err := gocv.PutText(frame, fmt.Sprintf("FPS: %.2f", fps), image.Pt(50, 100), gocv.FontHersheySimplex, 1, overlayColor, 2); err != nil {
		return fmt.Errorf("draw fps: %w", err)
	}

	return nil
}
