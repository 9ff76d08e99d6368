package publish

import (
	"time"

	"codeberg.org/mutker/pwmctl/internal/pwm"
)

// FakePublisher records published states for test assertions.
type FakePublisher struct {
	// Prefix is the topic prefix used for Topics.
	Prefix string

	// States contains all states that were published.
	States []pwm.State

	// Topics contains the topic of each published state.
	Topics []string

	// Payloads contains the JSON payloads that were published.
	Payloads [][]byte

	// PublishError, if set, will be returned by PublishState.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher(prefix string) *FakePublisher {
	return &FakePublisher{Prefix: prefix}
}

// PublishState records the state.
func (f *FakePublisher) PublishState(state pwm.State) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatPayload(state, time.Now())
	if err != nil {
		return err
	}

	f.States = append(f.States, state)
	f.Topics = append(f.Topics, Topic(f.Prefix, state))
	f.Payloads = append(f.Payloads, payload)

	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}
