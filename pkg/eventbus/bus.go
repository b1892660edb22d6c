// Package eventbus relays widget action details between host components over
// Watermill, either in memory or through Redis Streams.
package eventbus

import (
	"context"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	rstream "github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/go-go-golems/chatkit-host/pkg/actions"
)

const TopicActions = "chatkit.actions"

const (
	metadataSource     = "source"
	metadataReceivedAt = "received_at"
)

// Settings holds the Redis Streams transport configuration. When Enabled is
// false the bus runs on an in-memory GoChannel.
type Settings struct {
	Enabled  bool   `yaml:"enabled" env:"CHATKIT_HOST_REDIS_ENABLED"`
	Addr     string `yaml:"addr" env:"CHATKIT_HOST_REDIS_ADDR"`
	Group    string `yaml:"group" env:"CHATKIT_HOST_REDIS_GROUP"`
	Consumer string `yaml:"consumer" env:"CHATKIT_HOST_REDIS_CONSUMER"`
}

func DefaultSettings() Settings {
	return Settings{
		Addr:     "localhost:6379",
		Group:    "chatkit-host",
		Consumer: "host-1",
	}
}

// Meta describes where a relayed action came from.
type Meta struct {
	MessageID  string
	Source     string
	ReceivedAt time.Time
}

type HandlerFunc func(ctx context.Context, d *actions.Detail, meta Meta) error

type Bus struct {
	settings  Settings
	logger    zerolog.Logger
	wmLogger  watermill.LoggerAdapter
	router    *message.Router
	publisher message.Publisher

	// in-memory mode: one GoChannel serves as publisher and every subscriber
	memory *gochannel.GoChannel
	// redis mode: one subscriber per handler, each in its own consumer group
	redis       *redis.Client
	subscribers []message.Subscriber
}

func Build(s Settings, logger zerolog.Logger) (*Bus, error) {
	wmLogger := NewZerologAdapter(logger)
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, wmLogger)
	if err != nil {
		return nil, errors.Wrap(err, "create watermill router")
	}
	b := &Bus{
		settings: s,
		logger:   logger,
		wmLogger: wmLogger,
		router:   router,
	}

	if !s.Enabled {
		b.memory = gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, wmLogger)
		b.publisher = b.memory
		return b, nil
	}

	if strings.TrimSpace(s.Addr) == "" {
		return nil, errors.New("eventbus: redis addr is empty")
	}
	b.redis = redis.NewClient(&redis.Options{Addr: s.Addr})
	pub, err := rstream.NewPublisher(rstream.PublisherConfig{
		Client:     b.redis,
		Marshaller: rstream.DefaultMarshallerUnmarshaller{},
	}, wmLogger)
	if err != nil {
		_ = b.redis.Close()
		return nil, errors.Wrap(err, "create redis stream publisher")
	}
	b.publisher = pub
	return b, nil
}

func (b *Bus) Publisher() message.Publisher {
	return b.publisher
}

// PublishAction relays d on TopicActions, tagging it with its source.
func (b *Bus) PublishAction(ctx context.Context, source string, d *actions.Detail) error {
	payload, err := actions.Encode(d)
	if err != nil {
		return err
	}
	msg := message.NewMessage(uuid.NewString(), payload)
	msg.Metadata.Set(metadataSource, source)
	msg.Metadata.Set(metadataReceivedAt, time.Now().UTC().Format(time.RFC3339Nano))
	if ctx != nil {
		msg.SetContext(ctx)
	}
	if err := b.publisher.Publish(TopicActions, msg); err != nil {
		return errors.Wrap(err, "publish action")
	}
	return nil
}

// AddHandler registers h for every relayed action. Handlers must be added
// before Run. A handler error is logged and the message is dropped.
func (b *Bus) AddHandler(name string, h HandlerFunc) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("eventbus: handler name is empty")
	}
	if h == nil {
		return errors.New("eventbus: handler is nil")
	}
	sub, err := b.subscriberFor(name)
	if err != nil {
		return err
	}
	logger := b.logger.With().Str("handler", name).Logger()
	b.router.AddNoPublisherHandler(name, TopicActions, sub, func(msg *message.Message) error {
		d, err := actions.Decode(msg.Payload)
		if err != nil {
			logger.Warn().Err(err).Str("message_id", msg.UUID).Msg("dropping undecodable action")
			return nil
		}
		meta := Meta{
			MessageID: msg.UUID,
			Source:    msg.Metadata.Get(metadataSource),
		}
		if ts := msg.Metadata.Get(metadataReceivedAt); ts != "" {
			if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
				meta.ReceivedAt = t
			}
		}
		if err := h(msg.Context(), d, meta); err != nil {
			logger.Error().Err(err).Str("message_id", msg.UUID).Str("type", d.Type).Msg("action handler failed")
		}
		return nil
	})
	return nil
}

func (b *Bus) subscriberFor(name string) (message.Subscriber, error) {
	if b.memory != nil {
		return b.memory, nil
	}
	sub, err := rstream.NewSubscriber(rstream.SubscriberConfig{
		Client:        b.redis,
		Unmarshaller:  rstream.DefaultMarshallerUnmarshaller{},
		ConsumerGroup: b.settings.Group + "-" + name,
		Consumer:      b.settings.Consumer,
	}, b.wmLogger)
	if err != nil {
		return nil, errors.Wrapf(err, "create redis stream subscriber for %s", name)
	}
	b.subscribers = append(b.subscribers, sub)
	return sub, nil
}

// Run blocks until ctx is cancelled or the router is closed.
func (b *Bus) Run(ctx context.Context) error {
	return b.router.Run(ctx)
}

// Running is closed once every handler is subscribed.
func (b *Bus) Running() chan struct{} {
	return b.router.Running()
}

func (b *Bus) Close() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	keep(b.router.Close())
	for _, s := range b.subscribers {
		keep(s.Close())
	}
	if b.publisher != nil {
		keep(b.publisher.Close())
	}
	if b.redis != nil {
		keep(b.redis.Close())
	}
	return firstErr
}
