package bridge

import (
	"errors"
	"strings"
	"sync"
)

// MemBroker is an in-process MQTT broker with retained messages and
// +/# wildcards. Handlers run synchronously on the publishing goroutine.
type MemBroker struct {
	mu       sync.Mutex
	subs     map[uint64]memSub
	next     uint64
	retained map[string][]byte
}

type memSub struct {
	client *MemConn
	filter string
	h      MessageHandler
}

// NewMemBroker creates an empty broker.
func NewMemBroker() *MemBroker {
	return &MemBroker{subs: make(map[uint64]memSub), retained: make(map[string][]byte)}
}

// Connect returns a new client connection.
func (b *MemBroker) Connect() *MemConn {
	return &MemConn{broker: b, connected: true}
}

func (b *MemBroker) publish(topic string, payload []byte, retained bool) {
	b.mu.Lock()
	if retained {
		if len(payload) == 0 {
			delete(b.retained, topic)
		} else {
			b.retained[topic] = append([]byte(nil), payload...)
		}
	}
	var targets []MessageHandler
	for _, s := range b.subs {
		if s.client.IsConnected() && TopicMatch(s.filter, topic) {
			targets = append(targets, s.h)
		}
	}
	b.mu.Unlock()
	for _, h := range targets {
		h(topic, payload)
	}
}

func (b *MemBroker) subscribe(c *MemConn, filter string, h MessageHandler) {
	b.mu.Lock()
	b.next++
	b.subs[b.next] = memSub{client: c, filter: filter, h: h}
	type delivery struct {
		topic   string
		payload []byte
	}
	var pending []delivery
	for topic, payload := range b.retained {
		if TopicMatch(filter, topic) {
			pending = append(pending, delivery{topic, payload})
		}
	}
	b.mu.Unlock()
	for _, d := range pending {
		h(d.topic, d.payload)
	}
}

func (b *MemBroker) unsubscribe(c *MemConn, filter string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, s := range b.subs {
		if s.client == c && s.filter == filter {
			delete(b.subs, id)
		}
	}
}

// MemConn is one client of a MemBroker.
type MemConn struct {
	broker *MemBroker

	mu        sync.Mutex
	connected bool
	willTopic string
}

var errMemDisconnected = errors.New("membroker: not connected")

// SetWill registers a retained StatusOffline sent by Drop.
func (c *MemConn) SetWill(topic string) {
	c.mu.Lock()
	c.willTopic = topic
	c.mu.Unlock()
}

// Drop simulates an unclean disconnect and fires the will.
func (c *MemConn) Drop() {
	c.mu.Lock()
	c.connected = false
	will := c.willTopic
	c.mu.Unlock()
	if will != "" {
		c.broker.publish(will, []byte(StatusOffline), true)
	}
}

func (c *MemConn) Publish(topic string, payload []byte, retained bool) error {
	if !c.IsConnected() {
		return errMemDisconnected
	}
	c.broker.publish(topic, payload, retained)
	return nil
}

func (c *MemConn) Subscribe(topic string, h MessageHandler) error {
	if !c.IsConnected() {
		return errMemDisconnected
	}
	c.broker.subscribe(c, topic, h)
	return nil
}

func (c *MemConn) Unsubscribe(topic string) error {
	c.broker.unsubscribe(c, topic)
	return nil
}

func (c *MemConn) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *MemConn) Close() error {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
	return nil
}

// TopicMatch reports whether topic matches an MQTT subscription filter.
func TopicMatch(filter, topic string) bool {
	fp := strings.Split(filter, "/")
	tp := strings.Split(topic, "/")
	for i, f := range fp {
		if f == "#" {
			return true
		}
		if i >= len(tp) {
			return false
		}
		if f != "+" && f != tp[i] {
			return false
		}
	}
	return len(fp) == len(tp)
}
