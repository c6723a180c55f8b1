// Package forward proxies inbound traffic to the active provider's endpoint.
package forward

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned when a provider's circuit breaker rejects the
// request.
var ErrCircuitOpen = errors.New("forward: provider circuit open")

const (
	defaultFailureThreshold = 5
	defaultOpenDuration     = 30 * time.Second
	defaultHalfOpenProbes   = 1
)

// breakerSet holds one circuit breaker per provider id. Breakers are created
// lazily and survive provider updates so failure history is not reset by
// config edits.
type breakerSet struct {
	logger   *zerolog.Logger
	mu       sync.Mutex
	breakers map[string]*gobreaker.TwoStepCircuitBreaker[struct{}]
}

func newBreakerSet(logger *zerolog.Logger) *breakerSet {
	return &breakerSet{
		logger:   logger,
		breakers: make(map[string]*gobreaker.TwoStepCircuitBreaker[struct{}]),
	}
}

func (s *breakerSet) forProvider(id string) *gobreaker.TwoStepCircuitBreaker[struct{}] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cb, ok := s.breakers[id]; ok {
		return cb
	}

	settings := gobreaker.Settings{
		Name:        id,
		MaxRequests: defaultHalfOpenProbes,
		Timeout:     defaultOpenDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= defaultFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if s.logger == nil {
				return
			}
			event := s.logger.Info()
			if to == gobreaker.StateOpen {
				event = s.logger.Warn()
			}
			event.
				Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	}

	cb := gobreaker.NewTwoStepCircuitBreaker[struct{}](settings)
	s.breakers[id] = cb
	return cb
}

// allow checks the breaker for provider id. The returned done func must be
// called with the outcome of the upstream exchange.
func (s *breakerSet) allow(id string) (func(err error), error) {
	done, err := s.forProvider(id).Allow()
	if err != nil {
		return nil, ErrCircuitOpen
	}
	return done, nil
}
