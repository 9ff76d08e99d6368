// Package publish announces channel state on MQTT.
package publish

import (
	"encoding/json"
	"path"
	"time"

	"codeberg.org/mutker/pwmctl/internal/pwm"
)

// Publisher publishes channel state.
type Publisher interface {
	// PublishState sends the state of one channel.
	PublishState(state pwm.State) error

	// Close disconnects from the broker.
	Close() error
}

// Payload is the JSON document published for a channel.
type Payload struct {
	Timestamp   string  `json:"timestamp"`
	Chip        string  `json:"chip"`
	Channel     string  `json:"channel"`
	PeriodNS    int64   `json:"period_ns"`
	DutyCycleNS int64   `json:"duty_cycle_ns"`
	FrequencyHz float64 `json:"frequency_hz"`
	Ratio       float64 `json:"ratio"`
	Enabled     bool    `json:"enabled"`
	Inverted    bool    `json:"inverted"`
}

// Topic returns <prefix>/<chip>/<channel>/state.
func Topic(prefix string, state pwm.State) string {
	return path.Join(prefix, state.Chip, state.Channel, "state")
}

// FormatPayload creates the JSON payload for a channel state.
func FormatPayload(state pwm.State, now time.Time) ([]byte, error) {
	return json.Marshal(Payload{
		Timestamp:   now.UTC().Format(time.RFC3339),
		Chip:        state.Chip,
		Channel:     state.Channel,
		PeriodNS:    state.Period.Nanoseconds(),
		DutyCycleNS: state.DutyCycle.Nanoseconds(),
		FrequencyHz: state.Frequency(),
		Ratio:       state.Ratio(),
		Enabled:     state.Enabled,
		Inverted:    state.Inverted,
	})
}

// Noop discards everything. Used when no broker is configured.
type Noop struct{}

func (Noop) PublishState(pwm.State) error { return nil }
func (Noop) Close() error                 { return nil }
