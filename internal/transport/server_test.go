package transport

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestServer_EventFailuresDoNotBlockLaterEvents(t *testing.T) {
	rig := newRig(t)

	var mu sync.Mutex
	var seen []string
	record := func(s string) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, s)
	}

	rig.server.HandleEvent("user_registered", func(_ context.Context, ev Envelope) error {
		var p map[string]string
		_ = ev.Decode(&p)
		record(p["n"])
		switch p["n"] {
		case "2":
			return errors.New("smtp: 421 service not available")
		case "3":
			panic("template missing")
		}
		return nil
	})

	for _, n := range []string{"1", "2", "3", "4"} {
		rig.client.Emit(context.Background(), testQueue, "user_registered", map[string]string{"n": n})
	}
	rig.start(t)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 4
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"1", "2", "3", "4"}, seen)
}

func TestServer_EventsPublishedBeforeConsumerAreBuffered(t *testing.T) {
	bus := NewMemoryBus()
	client := NewClient(bus, testReplyQueue, time.Second, zaptest.NewLogger(t))
	client.Emit(context.Background(), "email_queue", "document_uploaded", map[string]string{"fileId": "f-1"})
	require.Equal(t, 1, bus.Pending("email_queue", "email-service"))

	server := NewServer(bus, "email_queue", "email-service", zaptest.NewLogger(t))
	got := make(chan string, 1)
	server.HandleEvent("document_uploaded", func(_ context.Context, ev Envelope) error {
		var p map[string]string
		if err := ev.Decode(&p); err != nil {
			return err
		}
		got <- p["fileId"]
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { defer close(done); _ = server.Serve(ctx) }()
	defer func() { cancel(); <-done }()

	select {
	case id := <-got:
		assert.Equal(t, "f-1", id)
	case <-time.After(time.Second):
		t.Fatal("buffered event was not delivered")
	}
}

func TestServer_UnknownEventIsIgnored(t *testing.T) {
	rig := newRig(t)
	handled := make(chan struct{}, 1)
	rig.server.HandleEvent("known", func(context.Context, Envelope) error {
		handled <- struct{}{}
		return nil
	})
	rig.start(t)

	rig.client.Emit(context.Background(), testQueue, "unknown", nil)
	rig.client.Emit(context.Background(), testQueue, "known", nil)

	select {
	case <-handled:
	case <-time.After(time.Second):
		t.Fatal("event after an unknown pattern was not handled")
	}
}

func TestServer_RequestsAreHandledConcurrently(t *testing.T) {
	rig := newRig(t)
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	rig.server.Handle("wait", func(context.Context, Envelope) (any, error) {
		started <- struct{}{}
		<-release
		return "ok", nil
	})
	rig.start(t)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = rig.client.Call(context.Background(), testQueue, "wait", nil, nil)
		}()
	}

	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(time.Second):
			close(release)
			t.Fatal("second request was blocked behind the first")
		}
	}
	close(release)
	wg.Wait()
}

func TestServer_DuplicateRegistrationPanics(t *testing.T) {
	s := NewServer(NewMemoryBus(), testQueue, "svc", zaptest.NewLogger(t))
	s.Handle("login", func(context.Context, Envelope) (any, error) { return nil, nil })
	assert.Panics(t, func() {
		s.Handle("login", func(context.Context, Envelope) (any, error) { return nil, nil })
	})

	s.HandleEvent("user_registered", func(context.Context, Envelope) error { return nil })
	assert.Panics(t, func() {
		s.HandleEvent("user_registered", func(context.Context, Envelope) error { return nil })
	})
	assert.Equal(t, []string{"login", "user_registered"}, s.Patterns())
}
