package classify

import (
	"context"
	"errors"
	"testing"
)

func TestAbsentUnavailable(t *testing.T) {
	_, err := Absent{}.Predict(context.Background(), Input{})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestZerosShape(t *testing.T) {
	z := Zeros()
	if z.Shape != [4]int{1, 100, 13, 1} {
		t.Errorf("shape = %v", z.Shape)
	}
	if len(z.Data) != 1300 {
		t.Errorf("len = %d, want 1300", len(z.Data))
	}
}

func TestBreathing(t *testing.T) {
	tests := map[float64]bool{0: false, 0.5: false, 0.51: true, 1: true}
	for score, want := range tests {
		if got := Breathing(score); got != want {
			t.Errorf("Breathing(%v) = %v, want %v", score, got, want)
		}
	}
}

func TestFunc(t *testing.T) {
	var c Classifier = Func(func(_ context.Context, in Input) (float64, error) {
		return float64(len(in.Audio)), nil
	})
	got, err := c.Predict(context.Background(), Input{Audio: []byte("abc")})
	if err != nil || got != 3 {
		t.Errorf("Predict = %v, %v", got, err)
	}
}
