// Package classify is the slot for an optional breath classifier that
// confirms or rejects what the envelope detector saw.
package classify

import (
	"context"
	"errors"
)

// Feature tensor shape: batch, frames, MFCC coefficients, channel.
const (
	Batch  = 1
	Frames = 100
	Coeffs = 13
	Chans  = 1
)

// Threshold is the score above which a verdict counts as breathing.
const Threshold = 0.5

var ErrUnavailable = errors.New("classifier unavailable")

type Tensor struct {
	Shape [4]int
	Data  []float32
}

// Zeros returns a zero-filled tensor of the model input shape.
func Zeros() Tensor {
	return Tensor{
		Shape: [4]int{Batch, Frames, Coeffs, Chans},
		Data:  make([]float32, Batch*Frames*Coeffs*Chans),
	}
}

type Input struct {
	Audio    []byte // encoded recording as written by the sampler
	Features Tensor
}

type Classifier interface {
	Predict(ctx context.Context, in Input) (float64, error)
}

// Absent is the classifier used when no model is installed.
type Absent struct{}

func (Absent) Predict(context.Context, Input) (float64, error) {
	return 0, ErrUnavailable
}

// Func adapts a plain function to Classifier.
type Func func(ctx context.Context, in Input) (float64, error)

func (f Func) Predict(ctx context.Context, in Input) (float64, error) {
	return f(ctx, in)
}

// Breathing reports whether a score counts as a breath.
func Breathing(score float64) bool { return score > Threshold }
