// SPDX-License-Identifier: EPL-2.0

package utils

import (
	"math"
	"testing"
)

func TestFloat32ToInt16(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input float32
		want  int16
	}{
		{name: "zero", input: 0.0, want: 0},
		{name: "max positive", input: 1.0, want: math.MaxInt16},
		{name: "max negative", input: -1.0, want: -math.MaxInt16},
		{name: "half positive", input: 0.5, want: 16383}, // 16383.5 truncated
		{name: "half negative", input: -0.5, want: -16383},
		{name: "quarter positive", input: 0.25, want: 8191},
		{name: "small positive", input: 0.001, want: 32},
		{name: "small negative", input: -0.001, want: -32},
		{name: "clamp over max", input: 2.0, want: math.MaxInt16},
		{name: "clamp under min", input: -2.0, want: -math.MaxInt16},
		{name: "clamp way over max", input: 100.0, want: math.MaxInt16},
		{name: "clamp way under min", input: -100.0, want: -math.MaxInt16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Float32ToInt16(tt.input)
			if got != tt.want {
				t.Errorf("Float32ToInt16(%v) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestFloat32ToInt16_SaturatesLikeFullScale(t *testing.T) {
	t.Parallel()

	for _, over := range []float32{1.0000001, 1.5, 2.0, float32(math.Inf(1))} {
		if got, want := Float32ToInt16(over), Float32ToInt16(1.0); got != want {
			t.Errorf("Float32ToInt16(%v) = %d, want %d (same as 1.0)", over, got, want)
		}
	}

	for _, under := range []float32{-1.0000001, -1.5, -2.0, float32(math.Inf(-1))} {
		if got, want := Float32ToInt16(under), Float32ToInt16(-1.0); got != want {
			t.Errorf("Float32ToInt16(%v) = %d, want %d (same as -1.0)", under, got, want)
		}
	}
}

func TestFloat32ToInt16_Monotonic(t *testing.T) {
	t.Parallel()

	prev := Float32ToInt16(-1)
	for i := -1000; i <= 1000; i++ {
		cur := Float32ToInt16(float32(i) / 1000)
		if cur < prev {
			t.Fatalf("Float32ToInt16 not monotonic at %d: %d < %d", i, cur, prev)
		}
		prev = cur
	}
}

func TestInt16ToFloat32(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input int16
		want  float32
	}{
		{0, 0},
		{16384, 0.5},
		{-16384, -0.5},
		{math.MinInt16, -1},
	}

	for _, tt := range tests {
		if got := Int16ToFloat32(tt.input); got != tt.want {
			t.Errorf("Int16ToFloat32(%d) = %v, want %v", tt.input, got, tt.want)
		}
	}

	if got := Int16ToFloat32(math.MaxInt16); got >= 1 || got < 0.9999 {
		t.Errorf("Int16ToFloat32(MaxInt16) = %v, want just below 1", got)
	}
}

func BenchmarkFloat32ToInt16(b *testing.B) {
	samples := make([]float32, 4096)
	for i := range samples {
		samples[i] = float32(math.Sin(float64(i) / 10))
	}

	b.ReportAllocs()

	for b.Loop() {
		for _, s := range samples {
			_ = Float32ToInt16(s)
		}
	}
}
