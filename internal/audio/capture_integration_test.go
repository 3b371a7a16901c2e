//go:build integration

package audio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCaptureIntegration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	selection, err := SelectDevice(ctx, "default", "")
	require.NoError(t, err)

	capture, err := StartCapture(ctx, selection.Device, CaptureOptions{})
	require.NoError(t, err)

	time.Sleep(300 * time.Millisecond)
	require.NoError(t, capture.Stop())
	for range capture.Chunks() {
	}
	require.Positive(t, capture.BytesCaptured())
}
