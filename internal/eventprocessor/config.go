// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

package eventprocessor

import "time"

// Topics names the broker subjects the pipeline uses.
type Topics struct {
	// FeedDeliver carries inbound FeedDeliverEvent messages.
	FeedDeliver string `koanf:"feed_deliver"`

	// DeliveryResult carries async provider outcomes.
	DeliveryResult string `koanf:"delivery_result"`

	// MediumDisable carries outbound DisableDestinationEvent signals.
	MediumDisable string `koanf:"medium_disable"`

	// DeliveryEnqueue carries provider jobs for the delivery workers.
	DeliveryEnqueue string `koanf:"delivery_enqueue"`
}

// DefaultTopics returns the production subject names.
func DefaultTopics() Topics {
	return Topics{
		FeedDeliver:     "feed.deliver",
		DeliveryResult:  "delivery.result",
		MediumDisable:   "medium.disable",
		DeliveryEnqueue: "delivery.enqueue",
	}
}

// ServerConfig configures the embedded NATS server.
type ServerConfig struct {
	Host              string `koanf:"host"`
	Port              int    `koanf:"port"`
	StoreDir          string `koanf:"store_dir"`
	JetStreamMaxMem   int64  `koanf:"jetstream_max_mem"`
	JetStreamMaxStore int64  `koanf:"jetstream_max_store"`
}

// DefaultServerConfig returns production defaults for the embedded server.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:              "127.0.0.1",
		Port:              4222,
		StoreDir:          "/data/nats/jetstream",
		JetStreamMaxMem:   1 << 30,
		JetStreamMaxStore: 10 << 30,
	}
}

// PublisherConfig holds publisher configuration.
type PublisherConfig struct {
	URL              string        `koanf:"url"`
	MaxReconnects    int           `koanf:"max_reconnects"`
	ReconnectWait    time.Duration `koanf:"reconnect_wait"`
	ReconnectBuffer  int           `koanf:"reconnect_buffer"`
	EnableTrackMsgID bool          `koanf:"enable_track_msg_id"`
}

// DefaultPublisherConfig returns production defaults for the publisher.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		URL:              url,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
		ReconnectBuffer:  8 * 1024 * 1024,
		EnableTrackMsgID: true,
	}
}

// SubscriberConfig holds subscriber configuration.
type SubscriberConfig struct {
	URL              string        `koanf:"url"`
	DurableName      string        `koanf:"durable_name"`
	QueueGroup       string        `koanf:"queue_group"`
	SubscribersCount int           `koanf:"subscribers_count"`
	AckWaitTimeout   time.Duration `koanf:"ack_wait_timeout"`
	MaxDeliver       int           `koanf:"max_deliver"`
	MaxAckPending    int           `koanf:"max_ack_pending"`
	CloseTimeout     time.Duration `koanf:"close_timeout"`
	MaxReconnects    int           `koanf:"max_reconnects"`
	ReconnectWait    time.Duration `koanf:"reconnect_wait"`
}

// DefaultSubscriberConfig returns production defaults for the subscriber.
func DefaultSubscriberConfig(url string) SubscriberConfig {
	return SubscriberConfig{
		URL:              url,
		DurableName:      "article-delivery",
		QueueGroup:       "article-delivery",
		SubscribersCount: 1,
		AckWaitTimeout:   60 * time.Second,
		MaxDeliver:       3,
		MaxAckPending:    256,
		CloseTimeout:     30 * time.Second,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
	}
}
