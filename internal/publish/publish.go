// Package publish forwards scan results to downstream consumers.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/MeKo-Tech/metascan/internal/codec"
	"github.com/MeKo-Tech/metascan/internal/metadata"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// DefaultTopicPrefix is prepended to every topic.
const DefaultTopicPrefix = "metascan"

// ErrClosed is returned when publishing through a closed publisher.
var ErrClosed = errors.New("publish: publisher closed")

// Publisher delivers the descriptors found in one source.
type Publisher interface {
	Publish(ctx context.Context, source string, objs []metadata.Object) error
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) Publish(context.Context, string, []metadata.Object) error { return nil }
func (Nop) Close() error                                             { return nil }

// MQTTOptions configures an MQTT publisher.
type MQTTOptions struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Prefix   string
	QoS      byte
	Retain   bool
	Timeout  time.Duration
	Logger   *slog.Logger
}

func (o MQTTOptions) withDefaults() MQTTOptions {
	if o.Prefix == "" {
		o.Prefix = DefaultTopicPrefix
	}
	if o.ClientID == "" {
		o.ClientID = fmt.Sprintf("metascan-%d", time.Now().UnixNano())
	}
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// MQTT publishes each descriptor as codec JSON to <prefix>/<source>/<kind>.
type MQTT struct {
	client mqtt.Client
	opts   MQTTOptions
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// NewMQTT connects to the broker in opts.
func NewMQTT(opts MQTTOptions) (*MQTT, error) {
	opts = opts.withDefaults()
	if opts.Broker == "" {
		return nil, errors.New("publish: broker address is required")
	}

	co := mqtt.NewClientOptions().AddBroker(opts.Broker).SetClientID(opts.ClientID)
	co = co.SetOrderMatters(false).SetAutoReconnect(true).SetConnectTimeout(opts.Timeout)
	if opts.Username != "" {
		co = co.SetUsername(opts.Username).SetPassword(opts.Password)
	}

	client := mqtt.NewClient(co)
	token := client.Connect()
	if !token.WaitTimeout(opts.Timeout) {
		return nil, fmt.Errorf("publish: connect to %s timed out", opts.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("publish: connect to %s: %w", opts.Broker, err)
	}
	opts.Logger.Info("connected to MQTT broker", "broker", opts.Broker, "client_id", opts.ClientID)
	return newMQTTWithClient(client, opts), nil
}

func newMQTTWithClient(client mqtt.Client, opts MQTTOptions) *MQTT {
	opts = opts.withDefaults()
	return &MQTT{client: client, opts: opts, logger: opts.Logger}
}

// Publish sends one message per descriptor. It stops at the first failure.
func (p *MQTT) Publish(ctx context.Context, source string, objs []metadata.Object) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrClosed
	}

	for _, o := range objs {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := codec.MarshalObject(o)
		if err != nil {
			return fmt.Errorf("publish: encode %s: %w", o.Type(), err)
		}
		topic := Topic(p.opts.Prefix, source, o)
		if err := p.send(ctx, topic, data); err != nil {
			return err
		}
		p.logger.Debug("published descriptor", "topic", topic, "bytes", len(data))
	}
	return nil
}

func (p *MQTT) send(ctx context.Context, topic string, data []byte) error {
	token := p.client.Publish(topic, p.opts.QoS, p.opts.Retain, data)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.opts.Timeout):
		return fmt.Errorf("publish: %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %s: %w", topic, err)
	}
	return nil
}

// Close disconnects from the broker. It is safe to call more than once.
func (p *MQTT) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.client.Disconnect(250)
	p.logger.Info("disconnected from MQTT broker")
	return nil
}

// Topic builds <prefix>/<source>/<kind> for o. MQTT wildcards and separators
// in source are replaced so every source maps to exactly one topic level.
func Topic(prefix, source string, o metadata.Object) string {
	kind := "unknown"
	switch o.Type().Kind() {
	case metadata.KindFace:
		kind = "face"
	case metadata.KindMachineReadableCode:
		kind = o.Type().ShortName()
	}
	return strings.Join([]string{strings.TrimSuffix(prefix, "/"), topicLevel(source), kind}, "/")
}

func topicLevel(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "default"
	}
	return strings.NewReplacer("/", "_", "+", "_", "#", "_", "\x00", "").Replace(s)
}
