package gui

import (
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

func TestWindowsWithoutViews(t *testing.T) {
	logger, hook := test.NewNullLogger()

	w := NewWindows(0, logger)
	assert.Equal(t, 1, w.delayMs)
	assert.Equal(t, -1, w.PollKey())
	assert.Empty(t, w.Titles())
	assert.NoError(t, w.Close())
	assert.Empty(t, hook.AllEntries())
}
