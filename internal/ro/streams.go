// Package ro provides reactive stream utilities for llm-router using samber/ro.
//
// NOTE: samber/ro is pre-1.0. Keep usage confined to this package so API
// churn stays in one place.
//
// Use this package for event-driven pipelines (the detached telemetry write
// stream, shutdown signals). Do not reach for it on simple request/response
// paths; plain handlers are cheaper and clearer there.
package ro

import (
	"github.com/samber/ro"
)

// StreamFromChannel creates an Observable from a receive-only channel.
// When the channel is closed, the Observable completes.
func StreamFromChannel[T any](ch <-chan T) ro.Observable[T] {
	return ro.FromChannel(ch)
}

// SubscribeWithCallbacks wraps the callbacks in an Observer and subscribes.
// For channel-backed sources the subscription consumes until the channel
// closes, so callers typically run this on its own goroutine.
func SubscribeWithCallbacks[T any](
	source ro.Observable[T],
	onNext func(T),
	onError func(error),
	onComplete func(),
) ro.Subscription {
	observer := ro.NewObserver(onNext, onError, onComplete)
	return source.Subscribe(observer)
}
