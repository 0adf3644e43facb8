// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mail

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Poll interval bounds.
const (
	MinPollInterval = time.Second
	MaxPollInterval = 5 * time.Second
)

// ClampInterval limits d to [MinPollInterval, MaxPollInterval].
func ClampInterval(d time.Duration) time.Duration {
	switch {
	case d < MinPollInterval:
		return MinPollInterval
	case d > MaxPollInterval:
		return MaxPollInterval
	default:
		return d
	}
}

// Poller periodically asks a Bridge for the selected message.
type Poller struct {
	bridge   Bridge
	interval time.Duration
	onChange func(Record)

	mu     sync.RWMutex
	latest Record

	// errLog throttles repeated bridge failures.
	errLog rate.Sometimes
}

// NewPoller creates a poller. The interval is clamped to 1s..5s. onChange,
// if set, runs on the polling goroutine whenever the record changes.
func NewPoller(bridge Bridge, interval time.Duration, onChange func(Record)) *Poller {
	return &Poller{
		bridge:   bridge,
		interval: ClampInterval(interval),
		onChange: onChange,
		latest:   Failed(NoSelection),
		errLog:   rate.Sometimes{First: 1, Interval: time.Minute},
	}
}

// Interval returns the effective polling interval.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Run polls immediately and then on every tick. It blocks until the
// context is cancelled.
func (p *Poller) Run(ctx context.Context) {
	log.Debug().Dur("interval", p.interval).Msg("EMAIL_POLLER_START")

	p.Poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("EMAIL_POLLER_STOP")
			return
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll asks the bridge once, stores the answer and returns it. Bridge
// failures become error records.
func (p *Poller) Poll(ctx context.Context) Record {
	rec, err := p.bridge.SelectedMessage(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return p.Latest()
		}
		p.errLog.Do(func() {
			log.Warn().Err(err).Msg("EMAIL_POLL_ERROR")
		})
		rec = Failed(err.Error())
	}

	p.mu.Lock()
	changed := !rec.Equal(p.latest)
	p.latest = rec
	p.mu.Unlock()

	if changed {
		if rec.OK() {
			log.Debug().Str("subject", rec.Email.Subject).Msg("EMAIL_SELECTED")
		}
		if p.onChange != nil {
			p.onChange(rec)
		}
	}
	return rec
}

// Latest returns the most recent record. Before the first poll it reports
// NoSelection.
func (p *Poller) Latest() Record {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest
}
