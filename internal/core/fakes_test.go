package core

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// fakeSource yields count synthetic BGR frames. Indexes listed in broken are
// returned as empty frames.
type fakeSource struct {
	props  Properties
	count  int
	next   int
	broken map[int]bool
	closed bool
}

func newFakeSource(width, height int, fps float64, count int) *fakeSource {
	return &fakeSource{
		props:  Properties{Width: width, Height: height, FPS: fps, FrameCount: count},
		count:  count,
		broken: make(map[int]bool),
	}
}

func (s *fakeSource) Properties() Properties { return s.props }

func (s *fakeSource) Read(dst *gocv.Mat) bool {
	if s.next >= s.count {
		return false
	}
	index := s.next
	s.next++

	if s.broken[index] {
		dst.Close()
		*dst = gocv.NewMat()
		return true
	}

	frame := syntheticFrame(s.props.Width, s.props.Height, index)
	defer frame.Close()
	frame.CopyTo(dst)
	return true
}

func (s *fakeSource) Close() error {
	s.closed = true
	return nil
}

func (s *fakeSource) opener() SourceOpener {
	return func(string) (Source, error) { return s, nil }
}

func syntheticFrame(width, height, seed int) gocv.Mat {
	data := make([]byte, width*height*3)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := (y*width + x) * 3
			data[i] = byte(x + seed)
			data[i+1] = byte(y * 3)
			data[i+2] = byte((x*y + seed*17) % 256)
		}
	}
	mat, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC3, data)
	if err != nil {
		panic(err)
	}
	defer mat.Close()
	return mat.Clone()
}

// fakeSink keeps a copy of every written frame
type fakeSink struct {
	path     string
	size     image.Point
	fps      float64
	frames   [][]byte
	channels []int
	failAt   int
	closed   bool
}

func (s *fakeSink) Write(frame gocv.Mat) error {
	if s.failAt > 0 && len(s.frames)+1 == s.failAt {
		return fmt.Errorf("disk full")
	}
	if frame.Cols() != s.size.X || frame.Rows() != s.size.Y {
		return fmt.Errorf("%w: size mismatch", ErrSinkWrite)
	}
	s.frames = append(s.frames, frame.ToBytes())
	s.channels = append(s.channels, frame.Channels())
	return nil
}

func (s *fakeSink) Size() image.Point { return s.size }
func (s *fakeSink) FPS() float64      { return s.fps }
func (s *fakeSink) Path() string      { return s.path }

func (s *fakeSink) Close() error {
	s.closed = true
	return nil
}

// sinkRecorder is a SinkFactory that remembers the sinks it created
type sinkRecorder struct {
	calls  int
	sink   *fakeSink
	failAt int
}

func (r *sinkRecorder) factory() SinkFactory {
	return func(path string, size image.Point, fps float64) (Sink, error) {
		r.calls++
		r.sink = &fakeSink{path: path, size: size, fps: fps, failAt: r.failAt}
		return r.sink, nil
	}
}

// fakeDisplay records shown titles and replays a key sequence
type fakeDisplay struct {
	shown  map[string]int
	keys   []int
	polls  int
	closed bool
}

func newFakeDisplay(keys ...int) *fakeDisplay {
	return &fakeDisplay{shown: make(map[string]int), keys: keys}
}

func (d *fakeDisplay) Show(title string, frame gocv.Mat) {
	d.shown[title]++
}

func (d *fakeDisplay) PollKey() int {
	d.polls++
	if d.polls <= len(d.keys) {
		return d.keys[d.polls-1]
	}
	return -1
}

func (d *fakeDisplay) Close() error {
	d.closed = true
	return nil
}

type fakeSnapshotter struct {
	frames []int
	stages int
}

func (s *fakeSnapshotter) Save(frame int, set *FrameSet) error {
	s.frames = append(s.frames, frame)
	s.stages = set.Len()
	return nil
}
