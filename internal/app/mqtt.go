// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTPublisher publishes session events as JSON. Lifecycle events go out
// with QoS 1, status events fire-and-forget with QoS 0.
type MQTTPublisher struct {
	client mqtt.Client
	topic  string
}

// NewMQTTPublisher connects to broker and publishes on topic.
func NewMQTTPublisher(broker, clientID, topic string) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectTimeout(5 * time.Second)

	client := mqtt.NewClient(opts)
	connected, err := awaitConnect(client.Connect(), 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("mqtt: connect %s: %w", broker, err)
	}
	if connected {
		log.Printf("mqtt: connected to broker at %s", broker)
	} else {
		log.Printf("mqtt: broker %s unreachable, connecting in background", broker)
	}

	return newMQTTPublisher(client, topic), nil
}

// awaitConnect reports whether the connect token completed within timeout.
// With connect retry enabled an unreachable broker just keeps it pending.
func awaitConnect(token mqtt.Token, timeout time.Duration) (bool, error) {
	if !token.WaitTimeout(timeout) {
		return false, nil
	}
	if err := token.Error(); err != nil {
		return false, err
	}
	return true, nil
}

func newMQTTPublisher(client mqtt.Client, topic string) *MQTTPublisher {
	return &MQTTPublisher{client: client, topic: topic}
}

// Handle is an EventBus subscriber.
func (p *MQTTPublisher) Handle(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("mqtt: event marshal error: %v", err)
		return
	}

	if ev.Type == EventStatus {
		p.client.Publish(p.topic, 0, false, payload)
		return
	}

	token := p.client.Publish(p.topic, 1, false, payload)
	if !token.WaitTimeout(2 * time.Second) {
		log.Printf("mqtt: %s event publish timed out", ev.Type)
		return
	}
	if err := token.Error(); err != nil {
		log.Printf("mqtt: %s event publish error: %v", ev.Type, err)
	}
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
