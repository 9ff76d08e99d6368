package pwm

import (
	"path/filepath"
	"strconv"

	"codeberg.org/mutker/pwmctl/internal/errors"
	"codeberg.org/mutker/pwmctl/internal/logger"
	"codeberg.org/mutker/pwmctl/internal/sysfs"
)

var _ Exporter = (*Chip)(nil)

// Chip is a PWM controller, e.g. /sys/class/pwm/pwmchip0.
type Chip struct {
	sys sysfs.Sysfs
	dev sysfs.Device
	log logger.Logger
}

// NewChip returns the chip at path. Nothing is read until it is used.
func NewChip(sys sysfs.Sysfs, path string, log logger.Logger) *Chip {
	return newChip(sys, sys.Device(path), log)
}

func newChip(sys sysfs.Sysfs, dev sysfs.Device, log logger.Logger) *Chip {
	if log == nil {
		log = logger.Nop()
	}

	return &Chip{sys: sys, dev: dev, log: log}
}

// ListChips returns every device of the pwm subsystem. Order is whatever
// the enumeration yields; call again to rescan.
func ListChips(sys sysfs.Sysfs, log logger.Logger) ([]*Chip, error) {
	devices, err := sys.Enumerate(Subsystem)
	if err != nil {
		return nil, errors.New().Wrap(errors.ErrListChips, err)
	}

	chips := make([]*Chip, 0, len(devices))
	for _, d := range devices {
		chips = append(chips, newChip(sys, d, log))
	}

	return chips, nil
}

func (c *Chip) Name() string {
	return c.dev.Name()
}

func (c *Chip) Path() string {
	return c.dev.Path()
}

// ChannelCount returns npwm, or 0 when it is absent or unreadable; the
// chip may still be initializing.
func (c *Chip) ChannelCount() int {
	if !c.dev.HasAttr(attrNpwm) {
		return 0
	}

	v, err := c.dev.ReadAttr(attrNpwm)
	if err != nil {
		c.log.Debug().Err(err).Str("chip", c.Path()).Msg("npwm unreadable")
		return 0
	}

	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		c.log.Debug().Str("chip", c.Path()).Str("npwm", v).Msg("npwm is not a count")
		return 0
	}

	return n
}

// ChannelPath returns where channel index appears once exported.
func (c *Chip) ChannelPath(index int) string {
	return filepath.Join(c.Path(), "pwm"+strconv.Itoa(index))
}

// Export makes channel index visible and returns it. An already exported
// channel is returned as is. Whether the kernel actually created the
// channel shows up on the first attribute access, not here.
func (c *Chip) Export(index int) (Controller, error) {
	if index < 0 {
		return nil, errors.New().WithData(errors.ErrInvalidArgument, struct {
			Chip  string
			Index int
		}{
			Chip:  c.Path(),
			Index: index,
		})
	}

	path := c.ChannelPath(index)
	if !c.sys.Exists(path) {
		if err := c.export(index); err != nil {
			return nil, err
		}
	}

	return NewChannel(c.sys.Device(path), c.log), nil
}

func (c *Chip) export(index int) error {
	// A readable export attribute means the platform exports through the
	// attribute layer, which cannot write it. Leave the channel alone.
	if c.dev.HasAttr(attrExport) {
		c.log.Warn().
			Str("chip", c.Path()).
			Int("channel", index).
			Msg("Chip exposes a readable export attribute, not exporting")
		return nil
	}

	if err := c.sys.WriteFile(filepath.Join(c.Path(), attrExport), strconv.Itoa(index)); err != nil {
		return errors.New().Wrap(ErrExportFailed, err).WithData(c.ChannelPath(index))
	}

	c.log.Debug().Str("chip", c.Path()).Int("channel", index).Msg("Exported channel")

	return nil
}
