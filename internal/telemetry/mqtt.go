// Package telemetry publishes detector channel events over MQTT and
// exposes an MCP tool surface for querying the live detector state.
// mqtt.go is grounded on the teacher's mqtt_publisher.go connect/publish/
// reconnect pattern.
package telemetry

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/cwsl/specttunerd/internal/config"
)

// ChannelEvent describes one channel assert/update/evict transition,
// published as a single MQTT message.
type ChannelEvent struct {
	Timestamp int64   `json:"timestamp"`
	Kind      string  `json:"kind"` // "asserted", "updated", "evicted"
	ID        string  `json:"id"`
	Fc        float64 `json:"fc_hz"`
	BW        float64 `json:"bw_hz"`
	SNR       float64 `json:"snr_db"`
	Age       uint    `json:"age"`
}

// Publisher publishes ChannelEvents to a topic, reconnecting automatically
// the way the teacher's own MQTT publisher does.
type Publisher struct {
	client mqtt.Client
	topic  string
}

func generateClientID(prefix string) string {
	b := make([]byte, 8)
	rand.Read(b)
	return prefix + "_" + hex.EncodeToString(b)
}

// NewPublisher connects to the broker described by cfg and returns a ready
// Publisher. Returns an error without leaking a half-connected client if
// the initial connection attempt fails.
func NewPublisher(cfg config.MQTTConfig) (*Publisher, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = generateClientID("specttunerd")
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(clientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Println("mqtt: connected to broker")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("mqtt: connection lost: %v", err)
	})
	opts.SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
		log.Println("mqtt: reconnecting...")
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("telemetry: connecting to mqtt broker %s: %w", cfg.Broker, token.Error())
	}

	topic := cfg.Topic
	if topic == "" {
		topic = "specttunerd/channels"
	}

	return &Publisher{client: client, topic: topic}, nil
}

// Publish encodes ev as JSON and publishes it at QoS 0 without retain,
// logging (not returning) a failure to publish since channel events are
// advisory telemetry, not control traffic.
func (p *Publisher) Publish(ev ChannelEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("mqtt: marshaling channel event: %v", err)
		return
	}

	token := p.client.Publish(p.topic, 0, false, data)
	go func() {
		if token.Wait() && token.Error() != nil {
			log.Printf("mqtt: publishing channel event: %v", token.Error())
		}
	}()
}

// Close disconnects the MQTT client, waiting up to 250ms for in-flight
// publishes to drain.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
