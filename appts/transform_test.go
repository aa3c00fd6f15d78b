package appts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransformOutput(t *testing.T) {
	tests := []struct {
		name string
		raw  []float64
		want float64
	}{
		{"zero output is the sum of the component means", []float64{0, 0, 0}, 21.0},
		{"fully positive saturation", []float64{1, 1, 1}, 2.0 + 8.0 + 48.0},
		{"fully negative saturation", []float64{-1, -1, -1}, 0.0 + 0.0 - 16.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, TransformOutput(tt.raw), 1e-12)
		})
	}
}

func TestTransformGradient(t *testing.T) {
	for j := 0; j < OutputComponents; j++ {
		assert.Equal(t, AppointmentVariances[j], TransformGradient(j))
	}
}
