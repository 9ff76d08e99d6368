package publish

import (
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	apperrors "codeberg.org/mutker/pwmctl/internal/errors"
	"codeberg.org/mutker/pwmctl/internal/pwm"
)

var testState = pwm.State{
	Chip:      "pwmchip0",
	Channel:   "pwm1",
	Path:      "/sys/class/pwm/pwmchip0/pwm1",
	Period:    time.Millisecond,
	DutyCycle: 250 * time.Microsecond,
	Enabled:   true,
}

func TestTopic(t *testing.T) {
	if got := Topic("lab/pwm", testState); got != "lab/pwm/pwmchip0/pwm1/state" {
		t.Errorf("unexpected topic: %s", got)
	}
	if got := Topic("lab/pwm/", testState); got != "lab/pwm/pwmchip0/pwm1/state" {
		t.Errorf("trailing slash not cleaned: %s", got)
	}
}

func TestFormatPayload(t *testing.T) {
	now := time.Date(2026, 10, 14, 8, 30, 0, 0, time.FixedZone("CEST", 2*3600))

	payload, err := FormatPayload(testState, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Timestamp != "2026-10-14T06:30:00Z" {
		t.Errorf("unexpected timestamp: %s", parsed.Timestamp)
	}
	if parsed.PeriodNS != 1_000_000 || parsed.DutyCycleNS != 250_000 {
		t.Errorf("unexpected period/duty: %d/%d", parsed.PeriodNS, parsed.DutyCycleNS)
	}
	if parsed.FrequencyHz != 1000 {
		t.Errorf("unexpected frequency: %v", parsed.FrequencyHz)
	}
	if parsed.Ratio != 0.25 {
		t.Errorf("unexpected ratio: %v", parsed.Ratio)
	}
	if !parsed.Enabled || parsed.Inverted {
		t.Errorf("unexpected flags: enabled=%v inverted=%v", parsed.Enabled, parsed.Inverted)
	}
}

func TestFakePublisherRecords(t *testing.T) {
	f := NewFakePublisher("pwmctl")

	if err := f.PublishState(testState); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.States) != 1 || f.States[0] != testState {
		t.Fatalf("state not recorded: %+v", f.States)
	}
	if f.Topics[0] != "pwmctl/pwmchip0/pwm1/state" {
		t.Errorf("unexpected topic: %s", f.Topics[0])
	}
	if len(f.Payloads) != 1 {
		t.Errorf("expected 1 payload, got %d", len(f.Payloads))
	}
}

func TestFakePublisherError(t *testing.T) {
	f := NewFakePublisher("pwmctl")
	f.PublishError = errors.New("broker down")

	if err := f.PublishState(testState); err == nil {
		t.Error("expected error to be returned")
	}
	if len(f.States) != 0 {
		t.Error("failed publish must not be recorded")
	}
}

func TestNoop(t *testing.T) {
	var p Publisher = Noop{}
	if err := p.PublishState(testState); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewRealPublisherUnreachable(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	l.Close()

	p, err := NewRealPublisher("tcp://"+addr, "pwmctl")
	if err == nil {
		p.Close()
		t.Fatal("expected error connecting to a closed port")
	}
	if !apperrors.HasCode(err, apperrors.ErrUnavailable) {
		t.Errorf("expected code %s, got %v", apperrors.ErrUnavailable, err)
	}
}
