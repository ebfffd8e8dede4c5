package ui

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	"github.com/user/vpn-watchdog/internal/core"
)

// The icon set is fixed and tiny, so it is rendered once up front. GetIcon
// is called from the monitor's update callback, which runs on guard-poll
// goroutines, and must be safe for concurrent use.
var (
	iconSafe         = statusDot(30, 200, 90)   // green
	iconUnsafe       = statusDot(220, 55, 55)   // red
	iconPaused       = statusDot(240, 190, 30)  // amber
	iconInitializing = statusDot(160, 160, 160) // gray
)

// GetIcon returns the tray icon for the given overall status.
func GetIcon(status core.OverallStatus) []byte {
	switch status {
	case core.OverallSafe:
		return iconSafe
	case core.OverallUnsafe:
		return iconUnsafe
	case core.OverallPaused:
		return iconPaused
	default:
		return iconInitializing
	}
}

// statusDot renders a filled 32x32 status dot as PNG.
func statusDot(r, g, b byte) []byte {
	const size = 32
	const cx, cy, radius = size / 2.0, size / 2.0, size/2.0 - 2

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx := float64(x) + 0.5 - cx
			dy := float64(y) + 0.5 - cy
			if dx*dx+dy*dy <= radius*radius {
				img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}
