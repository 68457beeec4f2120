// On-screen preview of stage outputs through OpenCV HighGUI windows
package gui

import (
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// Windows shows each titled view in its own window. Windows are created on
// first use and keep their creation order.
type Windows struct {
	windows map[string]*gocv.Window
	order   []string
	delayMs int
	logger  logrus.FieldLogger
}

func NewWindows(delayMs int, logger logrus.FieldLogger) *Windows {
	if delayMs < 1 {
		delayMs = 1
	}

	return &Windows{
		windows: make(map[string]*gocv.Window),
		delayMs: delayMs,
		logger:  logger,
	}
}

func (w *Windows) Show(title string, frame gocv.Mat) {
	if frame.Empty() {
		return
	}

	window, exists := w.windows[title]
	if !exists {
		window = gocv.NewWindow(title)
		w.windows[title] = window
		w.order = append(w.order, title)
		w.logger.WithField("title", title).Debug("Display window opened")
	}

	window.IMShow(frame)
}

// PollKey pumps the window event loop for the configured delay and returns
// the pressed key, or -1 when nothing was pressed or no window is open
func (w *Windows) PollKey() int {
	if len(w.order) == 0 {
		return -1
	}
	return w.windows[w.order[0]].WaitKey(w.delayMs)
}

// Titles returns the open windows in creation order
func (w *Windows) Titles() []string {
	titles := make([]string, len(w.order))
	copy(titles, w.order)
	return titles
}

func (w *Windows) Close() error {
	var firstErr error
	for _, title := range w.order {
		if err := w.windows[title].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if len(w.order) > 0 {
		w.logger.WithField("windows", len(w.order)).Debug("Display windows closed")
	}

	w.windows = make(map[string]*gocv.Window)
	w.order = nil
	return firstErr
}
