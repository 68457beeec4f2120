package core

import (
	"image"

	"gocv.io/x/gocv"
)

// Properties describes a video stream. FrameCount is zero when the container
// does not declare it.
type Properties struct {
	Width      int
	Height     int
	FPS        float64
	FrameCount int
}

func (p Properties) Size() image.Point {
	return image.Pt(p.Width, p.Height)
}

// Source is a finite, forward-only sequence of BGR frames
type Source interface {
	Properties() Properties
	// Read decodes the next frame into dst and returns false once the stream is exhausted
	Read(dst *gocv.Mat) bool
	Close() error
}

// SourceOpener opens a Source, failing with ErrSourceUnavailable
type SourceOpener func(path string) (Source, error)

// Sink is a write-once video file with size and frame rate fixed at creation
type Sink interface {
	Write(frame gocv.Mat) error
	Size() image.Point
	FPS() float64
	Path() string
	Close() error
}

// SinkFactory creates a Sink, failing with ErrSinkWrite
type SinkFactory func(path string, size image.Point, fps float64) (Sink, error)

// Display presents frames in named views. PollKey returns the pressed key or -1.
type Display interface {
	Show(title string, frame gocv.Mat)
	PollKey() int
	Close() error
}

// Snapshotter persists the stage outputs of a frame
type Snapshotter interface {
	Save(frame int, set *FrameSet) error
}
