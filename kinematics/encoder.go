//go:build tinygo

// Per-cable rotary position sensor for the four-cable kinematics' skip
// detection path, grounded on g2core's I2C_AS5601 driver
// (device/i2c_as5601/i2c_as5601.h): an AS5601 magnetic rotary encoder
// mounted to each cable spool, polled for its angle as a fraction of one
// mechanical rotation (ExternalEncoder::requestAngleFraction()). No
// tinygo.org/x/drivers binding exists for the AS5601 in the retrieval
// pack, so this talks the register protocol directly through the same
// core.NewI2CDriverConfig closure-injection style the teacher uses for
// its other I2C devices (see core/i2c.go), rather than inventing a
// distance-sensor stand-in.
package kinematics

import (
	"encoding/binary"

	"motioncore/core"
)

const encoderI2CBus = 0

// as5601Address is the device's fixed 7-bit I2C address (dev_address_ in
// i2c_as5601.h; AS5600L uses 0x40, this firmware targets the AS5601).
const as5601Address = 0x36

// as5601AngleReg is the kANGLE register (2 bytes, big-endian, 12-bit
// 0-4095 ticks per mechanical rotation).
const as5601AngleReg = 0x0E

// RegisterCableEncoder wires an AS5601 for the given cable index (0-3,
// A-D) onto oid, reporting each poll to fc via ObserveEncoderReading.
func RegisterCableEncoder(oid uint8, cable int, fc *FourCable) error {
	config := core.NewI2CDriverConfig("cable_encoder", encoderI2CBus, core.I2CAddress(as5601Address))

	config.InitFunc = func(cfg *core.DriverConfig) (interface{}, error) {
		if err := core.MustI2C().ConfigureBus(cfg.I2CBus, 400000); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	config.PollFunc = func(device interface{}) ([]byte, error) {
		cfg := device.(*core.DriverConfig)
		raw, err := core.MustI2C().Read(cfg.I2CBus, cfg.I2CAddr, []byte{as5601AngleReg}, 2)
		if err != nil {
			fc.ObserveEncoderReading(cable, 0, false)
			return nil, err
		}
		ticks := binary.BigEndian.Uint16(raw) & 0x0FFF
		fraction := float64(ticks) / 4096.0
		fc.ObserveEncoderReading(cable, fraction, true)
		return raw, nil
	}

	config.PollRate = 20 // ms

	return core.RegisterDriver(oid, config)
}
