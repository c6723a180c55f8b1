package ro_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/llm-router/internal/ro"
)

func TestStreamFromChannel(t *testing.T) {
	t.Parallel()

	ch := make(chan int, 3)
	ch <- 1
	ch <- 2
	ch <- 3
	close(ch)

	var (
		mu       sync.Mutex
		received []int
		done     = make(chan struct{})
	)

	go func() {
		ro.SubscribeWithCallbacks(
			ro.StreamFromChannel(ch),
			func(v int) {
				mu.Lock()
				received = append(received, v)
				mu.Unlock()
			},
			func(error) {},
			func() { close(done) },
		)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream did not complete")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{1, 2, 3}, received)
}

func TestSubscriptionSeesLateValues(t *testing.T) {
	t.Parallel()

	ch := make(chan string)
	done := make(chan struct{})

	var (
		mu     sync.Mutex
		values []string
	)

	go func() {
		ro.SubscribeWithCallbacks(
			ro.StreamFromChannel(ch),
			func(v string) {
				mu.Lock()
				values = append(values, v)
				mu.Unlock()
			},
			func(error) {},
			func() { close(done) },
		)
	}()

	ch <- "first"
	ch <- "second"
	close(ch)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream did not complete")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"first", "second"}, values)
}
