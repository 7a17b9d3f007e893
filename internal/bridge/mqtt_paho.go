package bridge

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

const defaultMQTTConnectTimeout = 5 * time.Second

// MQTTOptions configures DialMQTT.
type MQTTOptions struct {
	Broker   string // tcp://host:1883
	ClientID string
	Username string
	Password string
	QoS      byte

	// WillTopic, if set, gets a retained StatusOffline when the
	// connection drops without a clean disconnect.
	WillTopic string

	ConnectTimeout time.Duration
}

// pahoConn adapts a paho client to MQTTConn. Subscriptions are restored
// after an automatic reconnect.
type pahoConn struct {
	client pahomqtt.Client
	qos    byte

	subMu sync.RWMutex
	subs  map[string]MessageHandler
}

// DialMQTT connects to a broker.
func DialMQTT(o MQTTOptions) (MQTTConn, error) {
	timeout := o.ConnectTimeout
	if timeout == 0 {
		timeout = defaultMQTTConnectTimeout
	}
	c := &pahoConn{qos: o.QoS, subs: make(map[string]MessageHandler)}

	opts := pahomqtt.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(false).
		SetConnectTimeout(timeout).
		SetMaxReconnectInterval(30 * time.Second).
		SetCleanSession(true)
	if o.Username != "" {
		opts.SetUsername(o.Username)
		opts.SetPassword(o.Password)
	}
	if o.WillTopic != "" {
		opts.SetWill(o.WillTopic, StatusOffline, o.QoS, true)
	}
	opts.SetOnConnectHandler(func(pahomqtt.Client) {
		slog.Info("bridge: mqtt connected", "broker", o.Broker)
		c.restore()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		slog.Warn("bridge: mqtt connection lost", "broker", o.Broker, "err", err)
	})

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("mqtt: connect to %s: timeout after %v", o.Broker, timeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: connect to %s: %w", o.Broker, err)
	}
	return c, nil
}

func (c *pahoConn) wrap(h MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("bridge: mqtt handler panic", "topic", msg.Topic(), "panic", r)
			}
		}()
		h(msg.Topic(), msg.Payload())
	}
}

func (c *pahoConn) restore() {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	for topic, h := range c.subs {
		c.client.Subscribe(topic, c.qos, c.wrap(h))
	}
}

func (c *pahoConn) Publish(topic string, payload []byte, retained bool) error {
	token := c.client.Publish(topic, c.qos, retained, payload)
	if !token.WaitTimeout(defaultMQTTConnectTimeout) {
		return fmt.Errorf("mqtt: publish %s: timeout", topic)
	}
	return token.Error()
}

func (c *pahoConn) Subscribe(topic string, h MessageHandler) error {
	token := c.client.Subscribe(topic, c.qos, c.wrap(h))
	if !token.WaitTimeout(defaultMQTTConnectTimeout) {
		return fmt.Errorf("mqtt: subscribe %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return err
	}
	c.subMu.Lock()
	c.subs[topic] = h
	c.subMu.Unlock()
	return nil
}

func (c *pahoConn) Unsubscribe(topic string) error {
	c.subMu.Lock()
	delete(c.subs, topic)
	c.subMu.Unlock()
	token := c.client.Unsubscribe(topic)
	if !token.WaitTimeout(defaultMQTTConnectTimeout) {
		return fmt.Errorf("mqtt: unsubscribe %s: timeout", topic)
	}
	return token.Error()
}

func (c *pahoConn) IsConnected() bool { return c.client.IsConnectionOpen() }

func (c *pahoConn) Close() error {
	c.client.Disconnect(250)
	return nil
}
