package main

import (
	"testing"

	"gunpla-colorizer/internal/prompt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePoints(t *testing.T) {
	points, err := parsePoints("10,20,fg; 30,40,bg;5,6,1;")
	require.NoError(t, err)
	assert.Equal(t, []prompt.Point{
		{X: 10, Y: 20, Label: prompt.Foreground},
		{X: 30, Y: 40, Label: prompt.Background},
		{X: 5, Y: 6, Label: prompt.Foreground},
	}, points)

	for _, bad := range []string{"", "1,2", "a,2,fg", "1,2,maybe", "-1,2,fg"} {
		_, err := parsePoints(bad)
		assert.ErrorIs(t, err, errFormat, bad)
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in     string
		w, h   int
		hasErr bool
	}{
		{"", 0, 0, false},
		{"800x600", 800, 600, false},
		{"1024X768", 1024, 768, false},
		{"800", 0, 0, true},
		{"0x600", 0, 0, true},
		{"axb", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			w, h, err := parseSize(tt.in)
			if tt.hasErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.w, w)
			assert.Equal(t, tt.h, h)
		})
	}
}

func TestSibling(t *testing.T) {
	assert.Equal(t, "out/overlay-base.png", sibling("out/overlay.png", "base"))
	assert.Equal(t, "overlay-preview", sibling("overlay", "preview"))
}
