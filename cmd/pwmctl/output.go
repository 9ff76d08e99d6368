package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"codeberg.org/mutker/pwmctl/internal/config"
	"codeberg.org/mutker/pwmctl/internal/errors"
	"codeberg.org/mutker/pwmctl/internal/history"
	"codeberg.org/mutker/pwmctl/internal/pwm"
	"gopkg.in/yaml.v3"
)

type chipEntry struct {
	Name     string `yaml:"name"`
	Path     string `yaml:"path"`
	Channels int    `yaml:"channels"`
}

type historyEntry struct {
	Timestamp   string `yaml:"timestamp"`
	Chip        string `yaml:"chip"`
	Channel     string `yaml:"channel"`
	PeriodNS    int64  `yaml:"period_ns"`
	DutyCycleNS int64  `yaml:"duty_cycle_ns"`
	Enabled     bool   `yaml:"enabled"`
	Inverted    bool   `yaml:"inverted"`
}

func (a *app) list() error {
	chips, err := pwm.ListChips(a.sys, a.log)
	if err != nil {
		return err
	}

	entries := make([]chipEntry, 0, len(chips))
	for _, c := range chips {
		entries = append(entries, chipEntry{Name: c.Name(), Path: c.Path(), Channels: c.ChannelCount()})
	}

	if a.cfg.GetOutput() == config.OutputYAML {
		return writeYAML(a.out, map[string][]chipEntry{"chips": entries})
	}

	for _, e := range entries {
		fmt.Fprintln(a.out)
		fmt.Fprintf(a.out, "Available PWMChip %s\n", e.Name)
		fmt.Fprintf(a.out, "  at sysfs path: %s\n", e.Path)
		fmt.Fprintf(a.out, "  with %d pwms\n", e.Channels)
	}

	return nil
}

func (a *app) showHistory(ctx context.Context, limit int) error {
	snapshots, err := a.history.Recent(ctx, limit)
	if err != nil {
		return err
	}

	entries := make([]historyEntry, 0, len(snapshots))
	for _, s := range snapshots {
		entries = append(entries, newHistoryEntry(s))
	}

	if a.cfg.GetOutput() == config.OutputYAML {
		return writeYAML(a.out, map[string][]historyEntry{"history": entries})
	}

	for _, e := range entries {
		state := "disabled"
		if e.Enabled {
			state = "enabled"
		}
		fmt.Fprintf(a.out, "%s %s/%s period=%dns duty_cycle=%dns %s inverted=%t\n",
			e.Timestamp, e.Chip, e.Channel, e.PeriodNS, e.DutyCycleNS, state, e.Inverted)
	}

	return nil
}

func newHistoryEntry(s history.Snapshot) historyEntry {
	return historyEntry{
		Timestamp:   s.Timestamp.UTC().Format(time.RFC3339),
		Chip:        s.Chip,
		Channel:     s.Channel,
		PeriodNS:    s.Period.Nanoseconds(),
		DutyCycleNS: s.DutyCycle.Nanoseconds(),
		Enabled:     s.Enabled,
		Inverted:    s.Inverted,
	}
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(v); err != nil {
		return errors.New().Wrap(errors.ErrOperationFailed, err)
	}

	return enc.Close()
}
