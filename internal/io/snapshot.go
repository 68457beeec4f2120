package io

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"video-processing-pipeline/internal/core"
)

// SnapshotWriter saves every stage output of a frame as an image file
type SnapshotWriter struct {
	dir    string
	format string
	logger logrus.FieldLogger
}

func NewSnapshotWriter(dir string, logger logrus.FieldLogger) (*SnapshotWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create snapshot directory %s: %w", dir, err)
	}

	return &SnapshotWriter{
		dir:    dir,
		format: ".png",
		logger: logger,
	}, nil
}

// Save writes one file per stage, named frame_<number>_<stage>.png
func (sw *SnapshotWriter) Save(frame int, set *core.FrameSet) error {
	for _, name := range set.Names() {
		mat, _ := set.Get(name)
		path := filepath.Join(sw.dir, fmt.Sprintf("frame_%06d_%s%s", frame, name, sw.format))
		if err := sw.SaveImage(mat, path); err != nil {
			return err
		}
	}

	sw.logger.WithFields(logrus.Fields{
		"frame":  frame,
		"stages": set.Len(),
		"dir":    sw.dir,
	}).Debug("Snapshot saved")

	return nil
}

func (sw *SnapshotWriter) SaveImage(mat gocv.Mat, path string) error {
	if mat.Empty() {
		return fmt.Errorf("cannot save empty image")
	}

	if !isSupportedImageFormat(path) {
		return fmt.Errorf("unsupported image format: %s", path)
	}

	if !gocv.IMWrite(path, mat) {
		return fmt.Errorf("failed to save image: %s", path)
	}

	return nil
}

func isSupportedImageFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	supportedFormats := []string{".jpg", ".jpeg", ".png", ".tiff", ".tif", ".bmp"}

	for _, format := range supportedFormats {
		if ext == format {
			return true
		}
	}

	return false
}
