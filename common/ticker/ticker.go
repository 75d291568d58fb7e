// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package ticker

import (
	"sync"
	"time"
)

// Ticker is an abstraction of a ticker from standard time package.
// It contains a channel which produces ticks at certain intervals
// defined by implementations. TimeTicker wraps the standard time.Ticker,
// ManualTicker produces ticks on demand.
// When the ticker is stopped, no more ticks will be sent via the channel.
type Ticker interface {

	// C returns the channel on which the ticks are delivered.
	C() <-chan time.Time

	// Stop turns off a ticker. After Stop, no more ticks will be sent.
	Stop()
}

// TimeTicker is a wrapper around time.Ticker, which is a Ticker
// implementation based on the standard library.
type TimeTicker struct {
	ticker *time.Ticker
}

// NewTimeTicker creates a new TimeTicker, which is a Ticker
// implementation based on the standard time.Ticker.
func NewTimeTicker(d time.Duration) TimeTicker {
	return TimeTicker{time.NewTicker(d)}
}

func (t TimeTicker) C() <-chan time.Time {
	return t.ticker.C
}

func (t TimeTicker) Stop() {
	t.ticker.Stop()
}

// ManualTicker is a Ticker emitting a tick whenever Tick is called. It is
// intended for driving periodic background work in tests.
type ManualTicker struct {
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
}

func NewManualTicker() *ManualTicker {
	return &ManualTicker{ch: make(chan time.Time)}
}

func (t *ManualTicker) C() <-chan time.Time {
	return t.ch
}

// Tick delivers a tick and blocks until it has been received. Ticks of a
// stopped ticker are dropped.
func (t *ManualTicker) Tick() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.ch <- time.Now()
}

func (t *ManualTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}
