// Package pwm drives Linux PWM chips through the sysfs PWM class.
//
// A chip (/sys/class/pwm/pwmchipN) owns npwm channels. A channel has to be
// exported before its directory (pwmchipN/pwmM) and attributes exist.
// Channel setters reorder their writes so the kernel never sees a
// duty_cycle larger than the stored period.
package pwm

import "time"

const (
	// Subsystem is the sysfs subsystem PWM chips belong to.
	Subsystem = "pwm"

	attrNpwm      = "npwm"
	attrExport    = "export"
	attrPeriod    = "period"
	attrDutyCycle = "duty_cycle"
	attrEnable    = "enable"
	attrPolarity  = "polarity"

	polarityNormal   = "normal"
	polarityInversed = "inversed"

	// missingDuration is reported for an absent period or duty_cycle.
	missingDuration = time.Nanosecond
)

// Exporter makes channels of a chip addressable.
type Exporter interface {
	Name() string
	Path() string
	ChannelCount() int
	Export(index int) (Controller, error)
}

// Controller reads and changes the configuration of one exported channel.
type Controller interface {
	Name() string
	Path() string

	Period() (time.Duration, error)
	SetPeriod(period time.Duration) error
	DutyCycle() (time.Duration, error)
	SetDutyCycle(duty time.Duration) error
	Enabled() (bool, error)
	SetEnabled(enabled bool) error
	Inverted() (bool, error)
	SetInverted(inverted bool) error

	SetFrequencyAndRatio(frequencyHz int64, ratio float64) error
	State() (State, error)
}

// State is a point-in-time snapshot of a channel.
type State struct {
	Chip      string        `json:"chip" yaml:"chip"`
	Channel   string        `json:"channel" yaml:"channel"`
	Path      string        `json:"path" yaml:"path"`
	Period    time.Duration `json:"period_ns" yaml:"period_ns"`
	DutyCycle time.Duration `json:"duty_cycle_ns" yaml:"duty_cycle_ns"`
	Enabled   bool          `json:"enabled" yaml:"enabled"`
	Inverted  bool          `json:"inverted" yaml:"inverted"`
}

// Ratio returns DutyCycle/Period, or 0 for a zero period.
func (s State) Ratio() float64 {
	if s.Period <= 0 {
		return 0
	}

	return float64(s.DutyCycle) / float64(s.Period)
}

// Frequency returns the output frequency in Hz, or 0 for a zero period.
func (s State) Frequency() float64 {
	if s.Period <= 0 {
		return 0
	}

	return float64(time.Second) / float64(s.Period)
}
