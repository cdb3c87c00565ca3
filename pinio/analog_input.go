package pinio

import (
	"errors"

	"github.com/orsinium-labs/tinymath"
)

// CircuitModel selects the closed-form voltage-to-resistance mapping for
// an analog input, per the spec's "pull-up, inverting op-amp,
// constant-current inverting op-amp, external" set.
type CircuitModel uint8

const (
	CircuitPullUp CircuitModel = iota
	CircuitInvertingOpAmp
	CircuitConstantCurrentInvertingOpAmp
	CircuitExternal
)

// AnalogInput holds a moving-window sample history and a circuit model
// used to turn a reported voltage into a resistance. Grounded on the
// teacher's core/adc.go oversampling accumulator (AnalogIn.Value /
// SampleCount), generalized from a single running sum into a ring buffer
// so a trimmed mean can be computed, as the spec's variance-filtered
// reporting requires.
type AnalogInput struct {
	window      []float64
	pos         int
	filled      int
	VarianceMax float64

	Model  CircuitModel
	Params [6]float64

	Reference float64 // supply/reference voltage for the circuit formulas
}

// NewAnalogInput builds an analog input with a window of the given
// capacity (N samples) and a circuit model with up to 6 parameters.
func NewAnalogInput(capacity int, model CircuitModel, params [6]float64, reference float64) *AnalogInput {
	if capacity < 1 {
		capacity = 1
	}
	return &AnalogInput{
		window:      make([]float64, capacity),
		VarianceMax: 2.0,
		Model:       model,
		Params:      params,
		Reference:   reference,
	}
}

// AddSample pushes one raw voltage reading into the moving window.
func (a *AnalogInput) AddSample(v float64) {
	a.window[a.pos] = v
	a.pos = (a.pos + 1) % len(a.window)
	if a.filled < len(a.window) {
		a.filled++
	}
}

// Value returns the mean of samples within VarianceMax standard deviations
// of the rolling mean, falling back to the untrimmed mean if every sample
// is rejected (e.g. VarianceMax == 0 or a degenerate window).
func (a *AnalogInput) Value() (float64, error) {
	if a.filled == 0 {
		return 0, errors.New("pinio: no samples collected")
	}
	samples := a.window[:a.filled]

	mean := 0.0
	for _, s := range samples {
		mean += s
	}
	mean /= float64(a.filled)

	variance := 0.0
	for _, s := range samples {
		d := s - mean
		variance += d * d
	}
	variance /= float64(a.filled)
	sigma := float64(tinymath.Sqrt(float32(variance)))

	threshold := a.VarianceMax * sigma
	trimmedSum, trimmedCount := 0.0, 0
	for _, s := range samples {
		if absf(s-mean) <= threshold {
			trimmedSum += s
			trimmedCount++
		}
	}
	if trimmedCount == 0 {
		return mean, nil
	}
	return trimmedSum / float64(trimmedCount), nil
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Resistance derives a resistance from voltage using the selected circuit
// model. Params layout per model:
//
//	CircuitPullUp:                      Params[0] = pull-up resistor ohms
//	CircuitInvertingOpAmp:              Params[0] = feedback resistor ohms
//	CircuitConstantCurrentInvertingOpAmp: Params[0] = bias current amps
//	CircuitExternal:                    Params[0] = scale, Params[1] = offset
func (a *AnalogInput) Resistance(voltage float64) (float64, error) {
	switch a.Model {
	case CircuitPullUp:
		if voltage <= 0 || voltage >= a.Reference {
			return 0, errors.New("pinio: voltage out of range for pull-up circuit")
		}
		rPullup := a.Params[0]
		return rPullup * voltage / (a.Reference - voltage), nil
	case CircuitInvertingOpAmp:
		if voltage <= 0 {
			return 0, errors.New("pinio: voltage out of range for inverting op-amp circuit")
		}
		rFeedback := a.Params[0]
		return rFeedback * (a.Reference - voltage) / voltage, nil
	case CircuitConstantCurrentInvertingOpAmp:
		current := a.Params[0]
		if current <= 0 {
			return 0, errors.New("pinio: constant-current circuit requires positive bias current")
		}
		return voltage / current, nil
	case CircuitExternal:
		scale, offset := a.Params[0], a.Params[1]
		return scale*voltage + offset, nil
	}
	return 0, errors.New("pinio: unknown circuit model")
}
