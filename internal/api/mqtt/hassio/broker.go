package hassio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/alarm-panel/internal/logger"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	keepAlive      = 60 * time.Second
	// disconnectQuiesce is in milliseconds.
	disconnectQuiesce = 250
)

var errTimeout = errors.New("mqtt operation timed out")

// MessageHandler receives a message from a subscribed topic.
type MessageHandler func(topic string, payload []byte)

// Broker is the MQTT surface the bridge needs.
type Broker interface {
	Publish(topic string, retained bool, payload []byte) error
	Subscribe(topic string, handler MessageHandler) error
	Disconnect()
}

// BrokerOptions configure the paho connection.
type BrokerOptions struct {
	// URL is the broker address, e.g. tcp://localhost:1883.
	URL string
	// Username is optional.
	Username string
	// Password is optional.
	Password string
	// ClientID identifies this process to the broker.
	ClientID string
	// QoS is used for publishes and subscriptions.
	QoS byte
	// WillTopic receives WillPayload when the connection drops.
	WillTopic   string
	WillPayload string
	// OnConnect runs after every (re)connection.
	OnConnect func()
}

// PahoBroker is a Broker on top of paho.mqtt.golang.
type PahoBroker struct {
	client pahomqtt.Client
	qos    byte

	// subsMu guards subs.
	subsMu sync.RWMutex
	// subs are restored after every reconnection.
	subs map[string]MessageHandler
}

// Connect dials the broker and waits for the first connection.
func Connect(ctx context.Context, opts BrokerOptions) (*PahoBroker, error) {
	ctx = logger.WithName(ctx, "mqtt")

	pahomqtt.ERROR = logger.NewPrinter(ctx, zapcore.ErrorLevel)
	pahomqtt.CRITICAL = logger.NewPrinter(ctx, zapcore.ErrorLevel)
	pahomqtt.WARN = logger.NewPrinter(ctx, zapcore.WarnLevel)

	b := &PahoBroker{
		qos:  opts.QoS,
		subs: make(map[string]MessageHandler),
	}

	clientOpts := pahomqtt.NewClientOptions().
		AddBroker(opts.URL).
		SetClientID(opts.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectTimeout(connectTimeout).
		SetKeepAlive(keepAlive).
		SetOrderMatters(false).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			logger.WarnKV(ctx, "MQTT connection lost", "error", err)
		}).
		SetOnConnectHandler(func(pahomqtt.Client) {
			logger.InfoKV(ctx, "MQTT connection established", "broker", opts.URL)
			b.resubscribe(ctx)

			if opts.OnConnect != nil {
				opts.OnConnect()
			}
		})

	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
		clientOpts.SetPassword(opts.Password)
	}

	if opts.WillTopic != "" {
		clientOpts.SetWill(opts.WillTopic, opts.WillPayload, opts.QoS, true)
	}

	b.client = pahomqtt.NewClient(clientOpts)

	token := b.client.Connect()

	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return nil, fmt.Errorf("connect to %s: %w", opts.URL, err)
		}
	case <-ctx.Done():
		b.client.Disconnect(0)

		return nil, ctx.Err()
	}

	return b, nil
}

// Publish sends payload and waits for the broker acknowledgment.
func (b *PahoBroker) Publish(topic string, retained bool, payload []byte) error {
	return wait(b.client.Publish(topic, b.qos, retained, payload), "publish to "+topic)
}

// Subscribe registers handler on topic and remembers it for reconnections.
func (b *PahoBroker) Subscribe(topic string, handler MessageHandler) error {
	b.subsMu.Lock()
	b.subs[topic] = handler
	b.subsMu.Unlock()

	return b.subscribe(topic, handler)
}

// Disconnect closes the connection after pending work is flushed.
func (b *PahoBroker) Disconnect() {
	b.client.Disconnect(disconnectQuiesce)
}

func (b *PahoBroker) subscribe(topic string, handler MessageHandler) error {
	token := b.client.Subscribe(topic, b.qos, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})

	return wait(token, "subscribe to "+topic)
}

func (b *PahoBroker) resubscribe(ctx context.Context) {
	b.subsMu.RLock()
	subs := make(map[string]MessageHandler, len(b.subs))

	for topic, handler := range b.subs {
		subs[topic] = handler
	}
	b.subsMu.RUnlock()

	for topic, handler := range subs {
		if err := b.subscribe(topic, handler); err != nil {
			logger.ErrorKV(ctx, "Failed to restore subscription", "topic", topic, "error", err)
		}
	}
}

func wait(token pahomqtt.Token, operation string) error {
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("%s: %w", operation, errTimeout)
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}

	return nil
}
