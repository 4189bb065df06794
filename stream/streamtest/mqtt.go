// Package streamtest provides an in-memory MQTT client for tests.
package streamtest

import (
	"errors"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Token is an already completed mqtt.Token.
type Token struct {
	mqtt.Token
	err  error
	done chan struct{}
}

// NewToken returns a completed token carrying err.
func NewToken(err error) *Token {
	t := &Token{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *Token) Wait() bool                     { return true }
func (t *Token) WaitTimeout(time.Duration) bool { return true }
func (t *Token) Done() <-chan struct{}          { return t.done }
func (t *Token) Error() error                   { return t.err }

// Message is a received MQTT message.
type Message struct {
	mqtt.Message
	topic   string
	payload []byte
}

func (m *Message) Topic() string     { return m.topic }
func (m *Message) MessageID() uint16 { return 1 }
func (m *Message) Payload() []byte   { return m.payload }

// Publication is one recorded Publish call.
type Publication struct {
	Topic   string
	QoS     byte
	Payload []byte
}

// Client records publishes and lets tests inject messages on subscribed
// topics. Methods not used by ledmotion are left unimplemented.
type Client struct {
	mqtt.Client

	mu        sync.Mutex
	published []Publication
	handlers  map[string]mqtt.MessageHandler
	// Failures makes the next n publishes fail.
	Failures int
}

// ErrPublish is returned by publishes failed through Failures.
var ErrPublish = errors.New("streamtest: publish failed")

// NewClient creates an empty Client.
func NewClient() *Client {
	return &Client{handlers: make(map[string]mqtt.MessageHandler)}
}

func (c *Client) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Failures > 0 {
		c.Failures--
		return NewToken(ErrPublish)
	}
	b, _ := payload.([]byte)
	c.published = append(c.published, Publication{Topic: topic, QoS: qos, Payload: append([]byte(nil), b...)})
	return NewToken(nil)
}

func (c *Client) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[topic] = callback
	return NewToken(nil)
}

// Published returns a copy of every recorded publish.
func (c *Client) Published() []Publication {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Publication(nil), c.published...)
}

// Deliver hands payload to the handler subscribed to topic. It reports
// whether there was one.
func (c *Client) Deliver(topic string, payload []byte) bool {
	c.mu.Lock()
	h, ok := c.handlers[topic]
	c.mu.Unlock()
	if !ok {
		return false
	}
	h(c, &Message{topic: topic, payload: payload})
	return true
}
