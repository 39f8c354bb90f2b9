package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"camera-fleet-engine/internal/types"
)

// RedisConfig holds configuration for the redis alert publisher
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	Database int    `mapstructure:"database"`
	Queue    string `mapstructure:"queue"`
}

// DefaultRedisConfig returns the default redis notifier configuration
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:  "localhost:6379",
		Queue: "camera-fleet:alerts",
	}
}

// AlertMessage is the wire format pushed to the alert queue
type AlertMessage struct {
	ID         string    `json:"id"`
	DeviceID   string    `json:"deviceId"`
	DeviceName string    `json:"deviceName"`
	Zone       string    `json:"zone"`
	Type       string    `json:"type"`
	Severity   string    `json:"severity"`
	Message    string    `json:"message"`
	RaisedAt   time.Time `json:"raisedAt"`
	Published  time.Time `json:"published"`
}

// RedisNotifier publishes alert events to a redis list consumed by the
// external notification dispatcher.
type RedisNotifier struct {
	client *redis.Client
	queue  string
}

// NewRedisNotifier creates a redis-backed notifier and verifies the connection
func NewRedisNotifier(cfg RedisConfig) (*RedisNotifier, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.Database,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	queue := cfg.Queue
	if queue == "" {
		queue = DefaultRedisConfig().Queue
	}
	return &RedisNotifier{client: client, queue: queue}, nil
}

// NotifyAlert pushes the alert event to the queue
func (n *RedisNotifier) NotifyAlert(ctx context.Context, dev types.Device, alert types.Alert) error {
	msg := AlertMessage{
		ID:         alert.ID,
		DeviceID:   dev.ID,
		DeviceName: dev.Name,
		Zone:       string(dev.Zone),
		Type:       string(alert.Type),
		Severity:   string(alert.Severity),
		Message:    alert.Message,
		RaisedAt:   alert.Timestamp,
		Published:  time.Now().UTC(),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal alert message: %w", err)
	}
	return n.client.LPush(ctx, n.queue, data).Err()
}

// QueueLength returns the number of undelivered alert messages
func (n *RedisNotifier) QueueLength(ctx context.Context) (int64, error) {
	return n.client.LLen(ctx, n.queue).Result()
}

// Close closes the redis connection
func (n *RedisNotifier) Close() error {
	return n.client.Close()
}
