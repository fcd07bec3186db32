package main

import (
	"bytes"
	"context"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	dclist "github.com/jamesprial/dclist-go"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newLogger(w *syncBuffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// ---------------------------------------------------------------------------
// postStatsLoop
// ---------------------------------------------------------------------------

type mockPoster struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *mockPoster) PostStats(context.Context, ...dclist.StatsOption) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.err == nil, m.err
}

func (m *mockPoster) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func Test_postStatsLoop_PostsUntilCanceled(t *testing.T) {
	poster := &mockPoster{}
	var logs syncBuffer
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		postStatsLoop(ctx, poster, 5*time.Millisecond, 1, newLogger(&logs))
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for poster.count() < 3 {
		select {
		case <-deadline:
			t.Fatalf("PostStats called %d times, want at least 3", poster.count())
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("postStatsLoop did not return after cancel")
	}
	if !strings.Contains(logs.String(), "posted stats") {
		t.Errorf("logs = %q, want a success line", logs.String())
	}
}

func Test_postStatsLoop_LogsNoResultAsWarning(t *testing.T) {
	poster := &mockPoster{err: &dclist.NoResultError{Reason: dclist.ReasonRateLimited, Text: "slow"}}
	var logs syncBuffer
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	postStatsLoop(ctx, poster, time.Hour, 1, newLogger(&logs))

	if poster.count() != 1 {
		t.Errorf("PostStats calls = %d, want 1", poster.count())
	}
	if !strings.Contains(logs.String(), "level=WARN") {
		t.Errorf("logs = %q, want a WARN line", logs.String())
	}
}

// ---------------------------------------------------------------------------
// watchUpdates
// ---------------------------------------------------------------------------

type mockSource struct {
	mu      sync.Mutex
	opened  int
	updates []*dclist.Update
	cancel  context.CancelFunc
}

func (m *mockSource) SubscribeToUpdates(context.Context) iter.Seq2[*dclist.Update, error] {
	m.mu.Lock()
	m.opened++
	opened := m.opened
	m.mu.Unlock()

	return func(yield func(*dclist.Update, error) bool) {
		for _, u := range m.updates {
			if !yield(u, nil) {
				return
			}
		}
		if opened >= 2 {
			m.cancel()
		}
	}
}

func Test_watchUpdates_LogsAndReconnects(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := &mockSource{
		cancel: cancel,
		updates: []*dclist.Update{
			{Typename: "SdkVoteUpdate", User: &dclist.User{ID: 272442568275525634, Username: "voter"}},
			{Typename: "SdkCommentUpdate", Comment: &dclist.Comment{Content: "nice", Like: true, Author: &dclist.User{Username: "critic"}}},
			{Typename: "SdkMystery"},
		},
	}
	var logs syncBuffer

	done := make(chan struct{})
	go func() {
		watchUpdates(ctx, src, time.Millisecond, newLogger(&logs))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watchUpdates did not return after cancel")
	}

	if src.opened != 2 {
		t.Errorf("subscriptions opened = %d, want 2", src.opened)
	}
	out := logs.String()
	for _, want := range []string{"new vote", "username=voter", "new comment", "author=critic", "unrecognised update"} {
		if !strings.Contains(out, want) {
			t.Errorf("logs missing %q:\n%s", want, out)
		}
	}
}
