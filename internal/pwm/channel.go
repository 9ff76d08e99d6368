package pwm

import (
	"math"
	"path/filepath"
	"strconv"
	"time"

	"codeberg.org/mutker/pwmctl/internal/errors"
	"codeberg.org/mutker/pwmctl/internal/logger"
	"codeberg.org/mutker/pwmctl/internal/sysfs"
)

var _ Controller = (*Channel)(nil)

// Channel controls one exported PWM line.
//
// Getters always go to sysfs, another process may have changed the channel.
// period and duty mirror the stored values only for the duration of one
// setter. Channel does no locking, one writer per channel at a time.
type Channel struct {
	dev    sysfs.Device
	log    logger.Logger
	period time.Duration
	duty   time.Duration
}

// NewChannel wraps an exported channel device.
func NewChannel(dev sysfs.Device, log logger.Logger) *Channel {
	if log == nil {
		log = logger.Nop()
	}

	return &Channel{dev: dev, log: log}
}

func (c *Channel) Name() string {
	return c.dev.Name()
}

func (c *Channel) Path() string {
	return c.dev.Path()
}

// Period returns the stored period, or 1ns when the attribute is absent.
func (c *Channel) Period() (time.Duration, error) {
	p, err := c.readDurationOr(attrPeriod, missingDuration)
	if err != nil {
		return 0, err
	}
	c.period = p

	return p, nil
}

// DutyCycle returns the stored duty cycle, or 1ns when the attribute is absent.
func (c *Channel) DutyCycle() (time.Duration, error) {
	d, err := c.readDurationOr(attrDutyCycle, missingDuration)
	if err != nil {
		return 0, err
	}
	c.duty = d

	return d, nil
}

// Enabled reports whether output is on. An absent attribute reads as off.
func (c *Channel) Enabled() (bool, error) {
	if !c.dev.HasAttr(attrEnable) {
		return false, nil
	}

	v, err := c.dev.ReadAttr(attrEnable)
	if err != nil {
		return false, newInterfaceError(c.Path(), attrEnable, err)
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return false, newInterfaceError(c.Path(), attrEnable, err)
	}

	return n != 0, nil
}

// Inverted reports whether polarity is anything other than normal. An
// absent attribute reads as normal.
func (c *Channel) Inverted() (bool, error) {
	if !c.dev.HasAttr(attrPolarity) {
		return false, nil
	}

	v, err := c.dev.ReadAttr(attrPolarity)
	if err != nil {
		return false, newInterfaceError(c.Path(), attrPolarity, err)
	}

	return v != polarityNormal, nil
}

// SetPeriod stores period. If the stored duty cycle would not fit below
// the new period, duty_cycle is first lowered to period-1ns.
func (c *Channel) SetPeriod(period time.Duration) error {
	if err := c.refresh(); err != nil {
		return err
	}

	period = max(0, period)
	if c.duty >= period {
		if err := c.writeDutyCycle(period - time.Nanosecond); err != nil {
			return err
		}
	}

	return c.writePeriod(period)
}

// SetDutyCycle stores duty. If duty exceeds the stored period, period is
// first raised to duty+1ns.
func (c *Channel) SetDutyCycle(duty time.Duration) error {
	if err := c.refresh(); err != nil {
		return err
	}

	duty = max(0, duty)
	if duty > c.period {
		if err := c.writePeriod(duty + time.Nanosecond); err != nil {
			return err
		}
	}

	return c.writeDutyCycle(duty)
}

func (c *Channel) SetEnabled(enabled bool) error {
	v := "0"
	if enabled {
		v = "1"
	}

	if err := c.dev.WriteAttr(attrEnable, v); err != nil {
		return newArgumentError(c.Path(), attrEnable, err)
	}
	c.log.Debug().Str("channel", c.Path()).Bool("enabled", enabled).Msg("Set enable")

	return nil
}

func (c *Channel) SetInverted(inverted bool) error {
	v := polarityNormal
	if inverted {
		v = polarityInversed
	}

	if err := c.dev.WriteAttr(attrPolarity, v); err != nil {
		return newArgumentError(c.Path(), attrPolarity, err)
	}
	c.log.Debug().Str("channel", c.Path()).Str("polarity", v).Msg("Set polarity")

	return nil
}

// SetFrequencyAndRatio sets period to 1s/frequencyHz and duty cycle to
// ratio of that period. ratio is clamped to [0, 1].
func (c *Channel) SetFrequencyAndRatio(frequencyHz int64, ratio float64) error {
	if frequencyHz <= 0 {
		return errors.New().WithData(errors.ErrInvalidArgument, struct {
			Channel   string
			Frequency int64
		}{
			Channel:   c.Path(),
			Frequency: frequencyHz,
		})
	}

	ratio = math.Max(0, math.Min(1, ratio))
	period := time.Duration(int64(time.Second) / frequencyHz)

	if err := c.SetPeriod(period); err != nil {
		return err
	}

	return c.SetDutyCycle(time.Duration(math.Round(float64(period) * ratio)))
}

// State reads every attribute of the channel.
func (c *Channel) State() (State, error) {
	s := State{
		Chip:    filepath.Base(filepath.Dir(c.Path())),
		Channel: c.Name(),
		Path:    c.Path(),
	}

	var err error
	if s.Period, err = c.Period(); err != nil {
		return State{}, err
	}
	if s.DutyCycle, err = c.DutyCycle(); err != nil {
		return State{}, err
	}
	if s.Enabled, err = c.Enabled(); err != nil {
		return State{}, err
	}
	if s.Inverted, err = c.Inverted(); err != nil {
		return State{}, err
	}

	return s, nil
}

// refresh reloads period and duty_cycle. Both must be present integers.
func (c *Channel) refresh() error {
	p, err := c.readDuration(attrPeriod)
	if err != nil {
		return err
	}

	d, err := c.readDuration(attrDutyCycle)
	if err != nil {
		return err
	}

	c.period, c.duty = p, d

	return nil
}

func (c *Channel) writePeriod(period time.Duration) error {
	if err := c.writeDuration(attrPeriod, period); err != nil {
		return err
	}
	c.period = period

	return nil
}

func (c *Channel) writeDutyCycle(duty time.Duration) error {
	duty = max(0, duty)
	if err := c.writeDuration(attrDutyCycle, duty); err != nil {
		return err
	}
	c.duty = duty

	return nil
}

func (c *Channel) writeDuration(attr string, v time.Duration) error {
	if err := c.dev.WriteAttr(attr, strconv.FormatInt(v.Nanoseconds(), 10)); err != nil {
		return newArgumentError(c.Path(), attr, err)
	}

	c.log.Debug().
		Str("channel", c.Path()).
		Str("attr", attr).
		Int64("ns", v.Nanoseconds()).
		Msg("Wrote attribute")

	return nil
}

func (c *Channel) readDuration(attr string) (time.Duration, error) {
	v, err := c.dev.ReadAttr(attr)
	if err != nil {
		return 0, newInterfaceError(c.Path(), attr, err)
	}

	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, newInterfaceError(c.Path(), attr, err)
	}

	return time.Duration(n), nil
}

func (c *Channel) readDurationOr(attr string, fallback time.Duration) (time.Duration, error) {
	if !c.dev.HasAttr(attr) {
		return fallback, nil
	}

	return c.readDuration(attr)
}
