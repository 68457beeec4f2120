// Video file decoding and encoding through OpenCV
package io

import (
	"fmt"
	"os"

	"gocv.io/x/gocv"

	"video-processing-pipeline/internal/core"
)

// VideoSource reads frames from a video file
type VideoSource struct {
	capture *gocv.VideoCapture
	path    string
	props   core.Properties
}

// OpenSource opens path for reading. A missing or undecodable file fails with
// core.ErrSourceUnavailable; there is no retry.
func OpenSource(path string) (*VideoSource, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: video file %s does not exist: %v", core.ErrSourceUnavailable, path, err)
	}

	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open video file %s: %v", core.ErrSourceUnavailable, path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("%w: failed to open video file %s", core.ErrSourceUnavailable, path)
	}

	frameCount := int(capture.Get(gocv.VideoCaptureFrameCount))
	if frameCount < 0 {
		frameCount = 0
	}

	return &VideoSource{
		capture: capture,
		path:    path,
		props: core.Properties{
			Width:      int(capture.Get(gocv.VideoCaptureFrameWidth)),
			Height:     int(capture.Get(gocv.VideoCaptureFrameHeight)),
			FPS:        capture.Get(gocv.VideoCaptureFPS),
			FrameCount: frameCount,
		},
	}, nil
}

// SourceOpener adapts OpenSource to core.SourceOpener
func SourceOpener() core.SourceOpener {
	return func(path string) (core.Source, error) {
		src, err := OpenSource(path)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
}

func (s *VideoSource) Properties() core.Properties {
	return s.props
}

func (s *VideoSource) Path() string {
	return s.path
}

func (s *VideoSource) Read(dst *gocv.Mat) bool {
	if s.capture == nil {
		return false
	}
	return s.capture.Read(dst)
}

func (s *VideoSource) Close() error {
	if s.capture == nil {
		return nil
	}
	err := s.capture.Close()
	s.capture = nil
	return err
}
