package eventbus

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/chatkit-host/pkg/actions"
)

type received struct {
	detail *actions.Detail
	meta   Meta
}

func startBus(t *testing.T, handlers map[string]chan received) *Bus {
	t.Helper()
	return startBusWith(t, DefaultSettings(), handlers)
}

func startBusWith(t *testing.T, s Settings, handlers map[string]chan received) *Bus {
	t.Helper()
	b, err := Build(s, zerolog.Nop())
	require.NoError(t, err)
	for name, ch := range handlers {
		ch := ch
		require.NoError(t, b.AddHandler(name, func(_ context.Context, d *actions.Detail, meta Meta) error {
			ch <- received{detail: d, meta: meta}
			return nil
		}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		_ = b.Close()
		<-done
	})

	select {
	case <-b.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("bus did not start")
	}
	return b
}

func waitFor(t *testing.T, ch chan received) received {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for relayed action")
		return received{}
	}
}

func TestBus_FanOutToEveryHandler(t *testing.T) {
	a := make(chan received, 1)
	c := make(chan received, 1)
	b := startBus(t, map[string]chan received{"dispatch": a, "journal": c})

	require.NoError(t, b.PublishAction(context.Background(), "ws:1", actions.NewCopyToClipboard("hello")))

	for _, ch := range []chan received{a, c} {
		r := waitFor(t, ch)
		require.Equal(t, actions.TypeCopyToClipboard, r.detail.Type)
		require.Equal(t, "hello", r.detail.Payload["text"])
		require.Equal(t, "ws:1", r.meta.Source)
		require.NotEmpty(t, r.meta.MessageID)
		require.False(t, r.meta.ReceivedAt.IsZero())
	}
}

func TestBus_DropsUndecodablePayload(t *testing.T) {
	ch := make(chan received, 2)
	b := startBus(t, map[string]chan received{"dispatch": ch})

	require.NoError(t, b.Publisher().Publish(TopicActions, message.NewMessage("bad", []byte(`{not json`))))
	require.NoError(t, b.PublishAction(context.Background(), "cli", &actions.Detail{Type: "share_thread"}))

	r := waitFor(t, ch)
	require.Equal(t, "share_thread", r.detail.Type)
	require.Equal(t, "cli", r.meta.Source)
}

func TestBus_AddHandlerValidation(t *testing.T) {
	b, err := Build(DefaultSettings(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	require.Error(t, b.AddHandler("", func(context.Context, *actions.Detail, Meta) error { return nil }))
	require.Error(t, b.AddHandler("x", nil))
}

func TestBuild_RedisRequiresAddr(t *testing.T) {
	_, err := Build(Settings{Enabled: true}, zerolog.Nop())
	require.Error(t, err)
}

// TestBus_RedisConsumerGroupPerHandler needs a Redis server; set
// CHATKIT_HOST_TEST_REDIS_ADDR (e.g. localhost:6379) to run it.
func TestBus_RedisConsumerGroupPerHandler(t *testing.T) {
	addr := os.Getenv("CHATKIT_HOST_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CHATKIT_HOST_TEST_REDIS_ADDR not set")
	}
	s := Settings{
		Enabled:  true,
		Addr:     addr,
		Group:    "chatkit-host-test-" + uuid.NewString(),
		Consumer: "test-1",
	}
	a := make(chan received, 1)
	c := make(chan received, 1)
	b := startBusWith(t, s, map[string]chan received{"dispatch": a, "journal": c})

	require.NoError(t, b.PublishAction(context.Background(), "ws:redis", actions.NewCopyToClipboard("over redis")))

	// each handler has its own consumer group, so both see the message; a
	// fresh group may first replay older entries of the stream
	for _, ch := range []chan received{a, c} {
		for {
			r := waitFor(t, ch)
			if r.meta.Source != "ws:redis" {
				continue
			}
			require.Equal(t, "over redis", r.detail.Payload["text"])
			break
		}
	}
}
