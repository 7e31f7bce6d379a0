package remote

import (
	"context"
	"image"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/patchcanvas/pkg/errors"
	"github.com/matzehuels/patchcanvas/pkg/patch"
)

type fakeClient struct {
	mu       sync.Mutex
	channel  string
	payloads [][]byte
	err      error
}

func (f *fakeClient) Publish(_ context.Context, channel string, message any) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	f.channel = channel
	f.payloads = append(f.payloads, message.([]byte))
	return redis.NewIntResult(1, nil)
}

func (f *fakeClient) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func quiet() *log.Logger { return log.New(io.Discard) }

func TestEncodeDecode(t *testing.T) {
	h := patch.NewHandle()
	ev := patch.Event{
		Kind:   patch.EventMessage,
		Handle: h,
		Symbol: "pos",
		Args:   []patch.Atom{patch.Float(10), patch.Symbol("abs")},
	}

	data, err := Encode(ev, "src-1")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind":"message"`)

	got, source, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "src-1", source)
	assert.Equal(t, ev, got)
}

func TestEncodeOmitsZeroHandle(t *testing.T) {
	data, err := Encode(patch.Event{Kind: patch.EventReload}, "s")
	require.NoError(t, err)
	assert.NotContains(t, string(data), "handle")

	got, _, err := Decode(data)
	require.NoError(t, err)
	assert.True(t, got.Handle.IsZero())
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `{`},
		{"unknown kind", `{"kind":"explode"}`},
		{"bad handle", `{"kind":"geometry","handle":"nope"}`},
		{"bad argument", `{"kind":"message","args":[true]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode([]byte(tt.payload))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
		})
	}
}

func TestPublisher(t *testing.T) {
	client := &fakeClient{}
	p, err := NewPublisher(client, "", quiet())
	require.NoError(t, err)
	require.NotEmpty(t, p.Source())

	require.NoError(t, p.Publish(context.Background(), patch.Event{Kind: patch.EventConnections}))
	assert.Equal(t, DefaultChannel, client.channel)
	require.Len(t, client.payloads, 1)

	_, source, err := Decode(client.payloads[0])
	require.NoError(t, err)
	assert.Equal(t, p.Source(), source)

	client.err = assert.AnError
	err = p.Publish(context.Background(), patch.Event{Kind: patch.EventConnections})
	assert.True(t, errors.Is(err, errors.ErrCodeNetwork))
}

func TestPublisherRejectsBadChannel(t *testing.T) {
	_, err := NewPublisher(&fakeClient{}, "events *", quiet())
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidConfig))
}

func TestForward(t *testing.T) {
	client := &fakeClient{}
	p, err := NewPublisher(client, "test", quiet())
	require.NoError(t, err)
	m := patch.NewMemory(nil, quiet())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Forward(ctx, m) }()

	// Wait for the subscription so the event is not missed.
	require.Eventually(t, func() bool {
		_, _ = m.CreateUnit("print", image.Point{})
		return client.count() > 0
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Forward did not stop")
	}
}

func TestListenerDispatch(t *testing.T) {
	l, err := NewListener(nil, "test", "me", quiet())
	require.NoError(t, err)

	var got []patch.Event
	fn := func(ev patch.Event) { got = append(got, ev) }

	mine, _ := Encode(patch.Event{Kind: patch.EventText}, "me")
	theirs, _ := Encode(patch.Event{Kind: patch.EventText}, "them")

	assert.False(t, l.dispatch(string(mine), fn))
	assert.True(t, l.dispatch(string(theirs), fn))
	assert.False(t, l.dispatch("garbage", fn))
	require.Len(t, got, 1)
	assert.Equal(t, patch.EventText, got[0].Kind)
}
