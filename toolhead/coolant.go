package toolhead

import "motioncore/pinio"

// Coolant implements canonical.CoolantController over two digital output
// pins (mist, flood), each a pinio.DigitalOutput so polarity inversion
// is handled uniformly with every other driven pin in the system.
type Coolant struct {
	Mist  *pinio.DigitalOutput
	Flood *pinio.DigitalOutput
}

func (c *Coolant) SetMist(on bool) {
	if c.Mist != nil {
		c.Mist.SetBool(on)
	}
}

func (c *Coolant) SetFlood(on bool) {
	if c.Flood != nil {
		c.Flood.SetBool(on)
	}
}

// DigitalIO implements canonical.DigitalOutputSetter over an indexed set
// of user-assignable output pins, backing the TinyG-dialect M100/M102
// user-I/O block.
type DigitalIO struct {
	Pins []*pinio.DigitalOutput
}

func (d *DigitalIO) SetDigital(index int, on bool) {
	if index < 0 || index >= len(d.Pins) || d.Pins[index] == nil {
		return
	}
	d.Pins[index].SetBool(on)
}

func (d *DigitalIO) SetPWM(index int, fraction float64) {
	if index < 0 || index >= len(d.Pins) || d.Pins[index] == nil {
		return
	}
	d.Pins[index].SetAnalog(fraction)
}
