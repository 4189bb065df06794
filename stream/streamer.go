package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/matt-g-everett/ledmotion/util"
)

// ControlMessage is a command received on the control topic.
type ControlMessage struct {
	// Type is one of "next", "prev" or "goto".
	Type string `json:"type"`
	// Slide is the target of a "goto", as "scene:name".
	Slide string `json:"slide,omitempty"`
}

// Streamer that streams RGB data frames to an ledrx device.
type Streamer struct {
	config Config
	client mqtt.Client
	logger util.Logger
	retry  util.RetryPolicy
}

// NewStreamer creates an instance of a Streamer.
func NewStreamer(config Config, client mqtt.Client, logger util.Logger) *Streamer {
	s := new(Streamer)
	s.config = config
	s.client = client
	s.logger = logger
	s.retry = util.NoRetry()
	return s
}

// SetRetryPolicy sets how failed publishes are retried.
func (s *Streamer) SetRetryPolicy(p util.RetryPolicy) {
	s.retry = p
}

// SendFrame sends a frame as binary over MQTT to an ledrx device.
func (s *Streamer) SendFrame(ctx context.Context, f *Frame) error {
	b, err := f.MarshalBinary()
	if err != nil {
		return err
	}
	return s.retry.Do(ctx, func() error {
		token := s.client.Publish(s.config.Mqtt.Topics.Stream, s.config.Mqtt.QoS, false, b)
		return wait(ctx, token)
	})
}

// Subscribe delivers every valid command on the control topic to handler.
func (s *Streamer) Subscribe(ctx context.Context, handler func(ControlMessage)) error {
	topic := s.config.Mqtt.Topics.Control
	token := s.client.Subscribe(topic, s.config.Mqtt.QoS, func(_ mqtt.Client, msg mqtt.Message) {
		s.handleControlMessage(msg, handler)
	})
	if err := wait(ctx, token); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	s.logger.Info("Subscribed", util.F("topic", topic))
	return nil
}

func (s *Streamer) handleControlMessage(msg mqtt.Message, handler func(ControlMessage)) {
	s.logger.Debug("Received control message",
		util.F("id", msg.MessageID()), util.F("topic", msg.Topic()), util.F("payload", string(msg.Payload())))

	message, err := ParseControlMessage(msg.Payload())
	if err != nil {
		s.logger.Warn("Ignoring control message", util.F("error", err))
		return
	}
	handler(message)
}

// ParseControlMessage decodes and checks a control command.
func ParseControlMessage(payload []byte) (ControlMessage, error) {
	var message ControlMessage
	if err := json.Unmarshal(payload, &message); err != nil {
		return message, err
	}
	switch message.Type {
	case "next", "prev":
	case "goto":
		if message.Slide == "" {
			return message, errors.New("goto without a slide")
		}
	default:
		return message, fmt.Errorf("unknown command %q", message.Type)
	}
	return message, nil
}

func wait(ctx context.Context, token mqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
