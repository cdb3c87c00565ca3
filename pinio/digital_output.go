package pinio

import "errors"

// DigitalOutput is a driven pin: enabled flag, polarity, a proxy external
// number, and a 0..1 analog value. Grounded on the teacher's
// core/gpio.go DigitalOut, generalized to carry its own write function
// instead of reaching into the global MustGPIO() registry, so pinio stays
// independent of the board's HAL wiring.
type DigitalOutput struct {
	State          TriState
	Polarity       Polarity
	ExternalNumber int
	PWMCapable     bool

	value     float64 // last commanded value, 0..1
	frequency uint32  // last set PWM frequency; not readable from hardware

	write    func(bool) error
	writePWM func(duty float64) error
}

// NewDigitalOutput builds an output wired to write (boolean pins) and,
// when pwmCapable, writePWM (0..1 duty). writePWM may be nil for
// non-PWM-capable pins.
func NewDigitalOutput(write func(bool) error, writePWM func(float64) error) *DigitalOutput {
	return &DigitalOutput{
		State:      StateEnabled,
		write:      write,
		writePWM:   writePWM,
		PWMCapable: writePWM != nil,
	}
}

// SetBool drives the pin to the logical state v, inverting on the wire
// when polarity is active-low.
func (o *DigitalOutput) SetBool(v bool) error {
	if o.State != StateEnabled {
		return errors.New("pinio: output disabled")
	}
	wire := v
	if o.Polarity == ActiveLow {
		wire = !v
	}
	if v {
		o.value = 1
	} else {
		o.value = 0
	}
	if o.write == nil {
		return nil
	}
	return o.write(wire)
}

// SetAnalog drives a PWM-capable pin to duty (0..1), inverting the duty
// cycle when polarity is active-low.
func (o *DigitalOutput) SetAnalog(duty float64) error {
	if o.State != StateEnabled {
		return errors.New("pinio: output disabled")
	}
	if !o.PWMCapable {
		return errors.New("pinio: pin is not PWM-capable")
	}
	if duty < 0 {
		duty = 0
	}
	if duty > 1 {
		duty = 1
	}
	wire := duty
	if o.Polarity == ActiveLow {
		wire = 1 - duty
	}
	o.value = duty
	return o.writePWM(wire)
}

// Value returns the last commanded logical value (not wire polarity).
func (o *DigitalOutput) Value() float64 { return o.value }

// SetFrequency stores and applies a PWM frequency. Frequency is not
// readable back from hardware, so Frequency() reports the last value set
// here, not a hardware read.
func (o *DigitalOutput) SetFrequency(hz uint32, apply func(uint32) error) error {
	o.frequency = hz
	if apply == nil {
		return nil
	}
	return apply(hz)
}

// Frequency returns the last frequency passed to SetFrequency.
func (o *DigitalOutput) Frequency() uint32 { return o.frequency }
