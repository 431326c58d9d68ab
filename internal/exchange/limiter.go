package exchange

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// weightCooldown is how long an adapter pauses once its reported weight
// consumption exceeds the exchange ceiling.
const weightCooldown = 60 * time.Second

// limiter is the advisory rate-budget tracker embedded in every adapter.
// It trusts the exchange's own weight accounting rather than computing its
// own, because each exchange defines weight differently per endpoint.
// Adapters whose exchange reports no weight value simply never update it.
//
// Adapters are shared between the scrape loop and the request-serving
// handlers, so the counter is mutex-guarded.
type limiter struct {
	mu        sync.Mutex
	weight    int
	maxWeight int
	cooldown  time.Duration
}

func newLimiter(maxWeight int) *limiter {
	return &limiter{maxWeight: maxWeight, cooldown: weightCooldown}
}

// CheckWeight blocks the caller for the cooldown when the tracked weight has
// gone past the ceiling. Called before every outbound request.
func (l *limiter) CheckWeight() {
	l.mu.Lock()
	over := l.weight > l.maxWeight
	weight, maxWeight := l.weight, l.maxWeight
	cooldown := l.cooldown
	l.mu.Unlock()

	if over {
		logrus.WithFields(logrus.Fields{
			"weight":     weight,
			"max_weight": maxWeight,
		}).Infof("Weight %d is greater than %d, sleeping for %s", weight, maxWeight, cooldown)
		time.Sleep(cooldown)
	}
}

// UpdateWeight overwrites the tracked weight with the exchange's own
// authoritative count.
func (l *limiter) UpdateWeight(weight int) {
	l.mu.Lock()
	l.weight = weight
	l.mu.Unlock()
}

// Weight returns the current tracked consumption.
func (l *limiter) Weight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.weight
}

// MaxWeight returns the exchange-specific ceiling.
func (l *limiter) MaxWeight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.maxWeight
}
