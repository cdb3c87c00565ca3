//go:build tinygo

// Vibration tap for the safety manager, adapted from the teacher's
// ADXL345 input-shaping example. Here it feeds Manager.ObserveVibration
// instead of an input-shaper calibration routine: the safety manager
// samples the accelerometer's magnitude and raises a feedhold if it
// crosses ChatterThreshold for ChatterSamples consecutive polls.
package safety

import (
	"motioncore/core"

	"tinygo.org/x/drivers/adxl345"
)

const (
	vibrationOID    = 21
	vibrationI2CBus = 0
	vibrationAddr   = 0x53
)

// RegisterVibrationTap wires an ADXL345 accelerometer into the driver
// registry with pollRateMs as its PollRate (which the registry counts in
// timer ticks); polling begins once core.StartPolling is called for the
// instance. Each sample is handed to onSample (normally
// Manager.ObserveVibration).
func RegisterVibrationTap(pollRateMs uint32, onSample func(x, y, z int16)) error {
	config := core.NewI2CDriverConfig("vibration_tap", vibrationI2CBus, vibrationAddr)
	config.Attributes["data_rate"] = adxl345.RATE_3200HZ
	config.Attributes["range"] = adxl345.RANGE_16G

	config.InitFunc = func(cfg *core.DriverConfig) (interface{}, error) {
		i2c, err := core.GetMachineI2C(cfg.I2CBus)
		if err != nil {
			return nil, err
		}
		if err := core.MustI2C().ConfigureBus(cfg.I2CBus, 400000); err != nil {
			return nil, err
		}
		sensor := adxl345.New(i2c)
		sensor.Configure()
		sensor.SetRate(cfg.Attributes["data_rate"].(adxl345.Rate))
		sensor.SetRange(cfg.Attributes["range"].(adxl345.Range))
		return &sensor, nil
	}

	config.PollFunc = func(device interface{}) ([]byte, error) {
		sensor := device.(*adxl345.Device)
		x, y, z := sensor.ReadRawAcceleration()
		if onSample != nil {
			onSample(int16(x), int16(y), int16(z))
		}
		return []byte{byte(x >> 8), byte(x), byte(y >> 8), byte(y), byte(z >> 8), byte(z)}, nil
	}

	config.PollRate = pollRateMs

	config.CloseFunc = func(device interface{}) error {
		sensor := device.(*adxl345.Device)
		sensor.Halt()
		return nil
	}

	return core.RegisterDriver(vibrationOID, config)
}
