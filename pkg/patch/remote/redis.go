package remote

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/patchcanvas/pkg/errors"
	"github.com/matzehuels/patchcanvas/pkg/observability"
	"github.com/matzehuels/patchcanvas/pkg/patch"
)

const (
	// DefaultChannel is the pub/sub channel used when none is configured.
	DefaultChannel = "patchcanvas:events"

	transportName = "redis"
	forwardBuffer = 256
)

// Dial connects to the Redis server at url and checks it with a ping.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "invalid redis url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "failed to connect to redis")
	}
	return client, nil
}

// =============================================================================
// Publisher
// =============================================================================

// PublishClient is the part of *redis.Client a Publisher needs.
type PublishClient interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Publisher sends runtime events to a Redis channel.
type Publisher struct {
	client  PublishClient
	channel string
	source  string
	logger  *log.Logger
}

// NewPublisher creates a publisher on channel. A nil logger means
// log.Default().
func NewPublisher(client PublishClient, channel string, logger *log.Logger) (*Publisher, error) {
	if channel == "" {
		channel = DefaultChannel
	}
	if err := errors.ValidateChannel(channel); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Publisher{
		client:  client,
		channel: channel,
		source:  uuid.NewString(),
		logger:  logger.With("component", "remote", "channel", channel),
	}, nil
}

// Source returns the id stamped on every message.
func (p *Publisher) Source() string { return p.source }

// Publish sends one event.
func (p *Publisher) Publish(ctx context.Context, ev patch.Event) error {
	data, err := Encode(ev, p.source)
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "publish %s", ev.Kind)
	}
	return nil
}

// Forward publishes every event of n until ctx is done. Notifications are
// buffered so the runtime never waits on the network; when the buffer is
// full, events are dropped and reported.
func (p *Publisher) Forward(ctx context.Context, n patch.Notifier) error {
	events := make(chan patch.Event, forwardBuffer)
	cancel := n.Subscribe(func(ev patch.Event) {
		select {
		case events <- ev:
		default:
			observability.Backend().OnTransportError(ctx, transportName, errors.New(errors.ErrCodeBackendBusy, "event buffer full"))
		}
	})
	defer cancel()

	p.logger.Debug("forwarding events")
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if err := p.Publish(ctx, ev); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				p.logger.Warn("publish failed", "kind", ev.Kind, "err", err)
				observability.Backend().OnTransportError(ctx, transportName, err)
			}
		}
	}
}

// =============================================================================
// Listener
// =============================================================================

// SubscribeClient is the part of *redis.Client a Listener needs.
type SubscribeClient interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// Listener receives events from a Redis channel.
type Listener struct {
	client  SubscribeClient
	channel string
	ignore  string
	logger  *log.Logger
}

// NewListener creates a listener on channel. Messages stamped with ignore as
// their source are skipped; pass the local Publisher's source to drop echoes.
func NewListener(client SubscribeClient, channel, ignore string, logger *log.Logger) (*Listener, error) {
	if channel == "" {
		channel = DefaultChannel
	}
	if err := errors.ValidateChannel(channel); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Listener{
		client:  client,
		channel: channel,
		ignore:  ignore,
		logger:  logger.With("component", "remote", "channel", channel),
	}, nil
}

// Listen calls fn for every event received until ctx is done. fn runs on
// the listener's goroutine.
func (l *Listener) Listen(ctx context.Context, fn func(patch.Event)) error {
	sub := l.client.Subscribe(ctx, l.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return errors.Wrap(errors.ErrCodeNetwork, err, "subscribe %s", l.channel)
	}

	l.logger.Debug("listening")
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			l.dispatch(msg.Payload, fn)
		}
	}
}

// dispatch decodes one payload and delivers it unless it is an echo.
func (l *Listener) dispatch(payload string, fn func(patch.Event)) bool {
	ev, source, err := Decode([]byte(payload))
	if err != nil {
		l.logger.Warn("dropping malformed event", "err", err)
		return false
	}
	if source != "" && source == l.ignore {
		return false
	}
	fn(ev)
	return true
}
