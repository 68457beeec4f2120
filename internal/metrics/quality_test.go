package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func patternFrame(t *testing.T, width, height int, offset byte) gocv.Mat {
	t.Helper()
	data := make([]byte, width*height)
	for i := range data {
		data[i] = byte(i%width*4) + offset
	}
	mat, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC1, data)
	require.NoError(t, err)
	defer mat.Close()
	return mat.Clone()
}

func TestIdenticalFrames(t *testing.T) {
	frame := patternFrame(t, 32, 16, 0)
	defer frame.Close()

	values := NewEvaluator().CalculateAll(frame, frame)
	assert.Equal(t, 0.0, values["mse"])
	assert.Equal(t, maxPSNR, values["psnr"])
	assert.InDelta(t, 1.0, values["contrast_ratio"], 1e-9)
	assert.InDelta(t, 1.0, values["sharpness"], 1e-9)
}

func TestMSEAndPSNR(t *testing.T) {
	a := patternFrame(t, 32, 16, 0)
	defer a.Close()
	b := patternFrame(t, 32, 16, 2)
	defer b.Close()

	e := NewEvaluator()
	mse, err := e.Calculate("mse", a, b)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, mse, 1e-9)

	psnr, err := e.Calculate("psnr", a, b)
	require.NoError(t, err)
	assert.InDelta(t, 42.11, psnr, 0.01)

	_, err = e.Calculate("ssim", a, b)
	assert.Error(t, err)
}

func TestSizeMismatchLeavesOutPairMetrics(t *testing.T) {
	a := patternFrame(t, 32, 16, 0)
	defer a.Close()
	b := patternFrame(t, 16, 8, 0)
	defer b.Close()

	values := NewEvaluator().CalculateAll(a, b)
	assert.NotContains(t, values, "mse")
	assert.NotContains(t, values, "psnr")
	assert.Contains(t, values, "contrast_ratio")
}

func TestQualityTracker(t *testing.T) {
	a := patternFrame(t, 32, 16, 0)
	defer a.Close()
	b := patternFrame(t, 32, 16, 2)
	defer b.Close()

	tracker := NewQualityTracker(NewEvaluator())
	tracker.Sample(a, a)
	tracker.Sample(a, b)

	assert.Equal(t, 2, tracker.Samples())
	means := tracker.Means()
	assert.InDelta(t, 2.0, means["mse"], 1e-9)
	assert.Len(t, means, 4)
	assert.Equal(t, []string{"contrast_ratio", "mse", "psnr", "sharpness"}, NewEvaluator().Names())
}
