// Package pubsub publishes notification events to one Pub/Sub topic.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/wishlist-backend/pkg/config"
	"github.com/angelmondragon/wishlist-backend/pkg/gcp"
	"github.com/angelmondragon/wishlist-backend/pkg/logger"
)

// ackTimeout bounds how long Send waits for the server to accept a message.
const ackTimeout = 15 * time.Second

var (
	errNotInitialized = errors.New("pubsub client not initialized")
	ErrTopicMissing   = errors.New("pubsub topic does not exist")
)

// Client owns the connection and a lazily started publisher for the
// notification topic.
type Client struct {
	api   *pubsub.Client
	topic string

	once      sync.Once
	publisher *pubsub.Publisher
}

// NewClient connects and fails fast when the notification topic is missing.
func NewClient(ctx context.Context, creds config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	topic, err := TopicPath(creds.ProjectID, cfg.NotificationTopic)
	if err != nil {
		return nil, err
	}
	api, err := pubsub.NewClient(ctx, creds.ProjectID, gcp.ClientOptions(creds)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{api: api, topic: topic}
	if err := c.Ping(ctx); err != nil {
		_ = api.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "topic", topic), "pubsub client initialized")
	}
	return c, nil
}

// TopicPath expands a short topic id to projects/<project>/topics/<id>. A full
// resource name is returned unchanged.
func TopicPath(project, topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", errors.New("pubsub topic is required")
	}
	if strings.HasPrefix(topic, "projects/") {
		if parts := strings.Split(topic, "/"); len(parts) != 4 || parts[2] != "topics" || parts[1] == "" || parts[3] == "" {
			return "", fmt.Errorf("malformed topic name %q", topic)
		}
		return topic, nil
	}
	project = strings.TrimSpace(project)
	if project == "" {
		return "", errors.New("gcp project id is required")
	}
	return "projects/" + project + "/topics/" + topic, nil
}

// Topic is the full resource name messages are sent to.
func (c *Client) Topic() string {
	if c == nil {
		return ""
	}
	return c.topic
}

// Ping checks the topic through the admin API.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.api == nil {
		return errNotInitialized
	}
	_, err := c.api.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: c.topic})
	switch {
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%w: %s", ErrTopicMissing, c.topic)
	case err != nil:
		return fmt.Errorf("checking topic %s: %w", c.topic, err)
	}
	return nil
}

// Send publishes one message and blocks until the server acknowledges it.
func (c *Client) Send(ctx context.Context, data []byte, attrs map[string]string) error {
	if c == nil || c.api == nil {
		return errNotInitialized
	}
	c.once.Do(func() { c.publisher = c.api.Publisher(c.topic) })

	ctx, cancel := context.WithTimeout(ctx, ackTimeout)
	defer cancel()
	if _, err := c.publisher.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs}).Get(ctx); err != nil {
		return fmt.Errorf("publishing to %s: %w", c.topic, err)
	}
	return nil
}

// Close flushes pending messages, then releases the connection.
func (c *Client) Close() error {
	if c == nil || c.api == nil {
		return nil
	}
	if c.publisher != nil {
		c.publisher.Stop()
	}
	return c.api.Close()
}
