package command

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/anicoll/homedash/internal/pkg/model"
)

func TestHueFromPointer_Cardinals(t *testing.T) {
	tests := map[string]struct {
		dx, dy float64
		want   int
	}{
		"top":    {dx: 0, dy: -1, want: 0},
		"right":  {dx: 1, dy: 0, want: 90},
		"bottom": {dx: 0, dy: 1, want: 180},
		"left":   {dx: -1, dy: 0, want: 270},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, HueFromAngle(AngleFromPointer(tt.dx, tt.dy)))
		})
	}
	assert.Equal(t, 90, HueFromAngle(0))
}

func TestHSLToHex(t *testing.T) {
	hexRe := regexp.MustCompile(`^#[0-9a-f]{6}$`)
	for _, hue := range []int{0, 90, 180, 270, 359} {
		assert.Regexp(t, hexRe, WheelHex(hue))
	}
	assert.Equal(t, "#ff0000", HSLToHex(0, 100, 50))
	assert.Equal(t, "#00ff00", HSLToHex(120, 100, 50))
	assert.Equal(t, "#0000ff", HSLToHex(240, 100, 50))
	assert.Equal(t, "#ffffff", HSLToHex(0, 0, 100))
	assert.Equal(t, "#000000", HSLToHex(0, 0, 0))
}

func TestWhiteToneMapping(t *testing.T) {
	assert.Equal(t, 0, WhiteValueFromHue(0))
	assert.Equal(t, 100, WhiteValueFromHue(180))
	assert.Equal(t, 50, WhiteValueFromHue(90))
	assert.Equal(t, 50, WhiteValueFromHue(270))

	assert.Equal(t, 2200, KelvinFromValue(0))
	assert.Equal(t, 6500, KelvinFromValue(100))
	assert.Equal(t, 4350, KelvinFromValue(50))
}

func TestColorFromHue_FallsBackToTemperature(t *testing.T) {
	colour := NewDispatcher(nil, nil, lampWidget(model.Capabilities{"color": true, "temperature": true}))
	cmd := colour.ColorFromHue(180)
	assert.Equal(t, "color", cmd.Capability)
	assert.Equal(t, WheelHex(180), cmd.Params["color"])

	white := NewDispatcher(nil, nil, lampWidget(model.Capabilities{"temperature": true}))
	cmd = white.ColorFromHue(180)
	assert.Equal(t, "temperature", cmd.Capability)
	assert.Equal(t, 6500, cmd.Params["kelvin"])
}
