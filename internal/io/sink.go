package io

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"video-processing-pipeline/internal/core"
)

// VideoSink writes BGR frames of one fixed size to a video file
type VideoSink struct {
	writer  *gocv.VideoWriter
	path    string
	codec   string
	size    image.Point
	fps     float64
	written int
}

// CreateSink opens path for writing with the given FourCC codec. Size and
// frame rate are fixed for the lifetime of the sink.
func CreateSink(path, codec string, size image.Point, fps float64) (*VideoSink, error) {
	if len(codec) != 4 {
		return nil, fmt.Errorf("%w: codec must be a four character code, got %q", core.ErrSinkWrite, codec)
	}
	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("%w: invalid frame size %dx%d", core.ErrSinkWrite, size.X, size.Y)
	}
	if fps <= 0 {
		return nil, fmt.Errorf("%w: invalid frame rate %v", core.ErrSinkWrite, fps)
	}

	writer, err := gocv.VideoWriterFile(path, codec, fps, size.X, size.Y, true)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create %s: %v", core.ErrSinkWrite, path, err)
	}
	if !writer.IsOpened() {
		writer.Close()
		return nil, fmt.Errorf("%w: failed to open %s with codec %s", core.ErrSinkWrite, path, codec)
	}

	return &VideoSink{
		writer: writer,
		path:   path,
		codec:  codec,
		size:   size,
		fps:    fps,
	}, nil
}

// SinkFactory adapts CreateSink to core.SinkFactory
func SinkFactory(codec string) core.SinkFactory {
	return func(path string, size image.Point, fps float64) (core.Sink, error) {
		sink, err := CreateSink(path, codec, size, fps)
		if err != nil {
			return nil, err
		}
		return sink, nil
	}
}

// Write appends one frame. Frames whose size or channel layout differ from
// the sink are rejected, never written.
func (s *VideoSink) Write(frame gocv.Mat) error {
	if err := s.accepts(frame); err != nil {
		return err
	}
	if s.writer == nil {
		return fmt.Errorf("%w: %s is closed", core.ErrSinkWrite, s.path)
	}
	if err := s.writer.Write(frame); err != nil {
		return fmt.Errorf("%w: write %s: %v", core.ErrSinkWrite, s.path, err)
	}
	s.written++
	return nil
}

func (s *VideoSink) accepts(frame gocv.Mat) error {
	if frame.Empty() {
		return fmt.Errorf("%w: empty frame", core.ErrSinkWrite)
	}
	if frame.Cols() != s.size.X || frame.Rows() != s.size.Y {
		return fmt.Errorf("%w: frame %dx%d does not match sink %dx%d",
			core.ErrSinkWrite, frame.Cols(), frame.Rows(), s.size.X, s.size.Y)
	}
	if frame.Channels() != 3 {
		return fmt.Errorf("%w: sink expects 3 channels, got %d", core.ErrSinkWrite, frame.Channels())
	}
	return nil
}

func (s *VideoSink) Size() image.Point {
	return s.size
}

func (s *VideoSink) FPS() float64 {
	return s.fps
}

func (s *VideoSink) Path() string {
	return s.path
}

func (s *VideoSink) Codec() string {
	return s.codec
}

// Frames returns the number of frames written so far
func (s *VideoSink) Frames() int {
	return s.written
}

// Close flushes and releases the file. Closing twice is a no-op.
func (s *VideoSink) Close() error {
	if s.writer == nil {
		return nil
	}
	err := s.writer.Close()
	s.writer = nil
	return err
}
