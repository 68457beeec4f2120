package core

import "errors"

var (
	// ErrSourceUnavailable means the input path is missing or cannot be decoded
	ErrSourceUnavailable = errors.New("video source unavailable")

	// ErrSinkWrite means the output file could not be created or written
	ErrSinkWrite = errors.New("video sink write failure")

	// ErrFrameDecode means a single frame was empty or failed in the transform chain
	ErrFrameDecode = errors.New("frame decode failure")
)
