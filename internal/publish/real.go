package publish

import (
	"fmt"
	"time"

	"codeberg.org/mutker/pwmctl/internal/errors"
	"codeberg.org/mutker/pwmctl/internal/pwm"
	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client paho.Client
	prefix string
}

// NewRealPublisher connects to broker. State goes under prefix.
func NewRealPublisher(broker, prefix string) (*RealPublisher, error) {
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(fmt.Sprintf("pwmctl-%d", time.Now().UnixNano())).
		SetConnectTimeout(connectTimeout)

	errFactory := errors.New()
	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, errFactory.WithData(errors.ErrTimeout, broker)
	}
	if err := token.Error(); err != nil {
		return nil, errFactory.Wrap(errors.ErrUnavailable, err).WithData(broker)
	}

	return &RealPublisher{
		client: client,
		prefix: prefix,
	}, nil
}

// PublishState sends the state retained, so new subscribers see the last
// configuration of every channel.
func (p *RealPublisher) PublishState(state pwm.State) error {
	errFactory := errors.New()

	payload, err := FormatPayload(state, time.Now())
	if err != nil {
		return errFactory.Wrap(errors.ErrPublishState, err)
	}

	topic := Topic(p.prefix, state)
	token := p.client.Publish(topic, 1, true, payload)
	if !token.WaitTimeout(publishTimeout) {
		return errFactory.WithData(errors.ErrTimeout, topic)
	}
	if err := token.Error(); err != nil {
		return errFactory.Wrap(errors.ErrPublishState, err).WithData(topic)
	}

	return nil
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000)
	return nil
}
