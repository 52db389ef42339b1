// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 The LLL-TAO Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netio

import (
	"math"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
)

// decayHalfLife is the time constant for score decay: a score left
// untouched loses half its magnitude every decayHalfLife.
const decayHalfLife = 10 * time.Second

// banDuration is how long a ban sticks once issued.
const banDuration = 1 * time.Hour

const banKey = "banned"

// DDoSFilter holds two independently decayed rolling scores for a single
// peer: rSCORE for requests and cSCORE for connections. Banning is tracked
// through a single TTL cache entry built on github.com/patrickmn/go-cache.
type DDoSFilter struct {
	mutex sync.Mutex

	rScore     float64
	rUpdated   time.Time
	cScore     float64
	cUpdated   time.Time

	ban *cache.Cache
}

// NewDDoSFilter creates a filter with both scores at zero.
func NewDDoSFilter() *DDoSFilter {
	now := time.Now()
	return &DDoSFilter{
		rUpdated: now,
		cUpdated: now,
		ban:      cache.New(banDuration, banDuration),
	}
}

// decay applies exponential decay with half-life decayHalfLife.
func decay(score float64, elapsed time.Duration) float64 {
	if score == 0 || elapsed <= 0 {
		return score
	}
	decayed := score * math.Pow(0.5, float64(elapsed)/float64(decayHalfLife))
	if decayed < 0.01 {
		return 0
	}
	return decayed
}

// RequestScore returns the current, decayed rSCORE.
func (d *DDoSFilter) RequestScore() float64 {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.rScore = decay(d.rScore, time.Since(d.rUpdated))
	d.rUpdated = time.Now()
	return d.rScore
}

// ConnectionScore returns the current, decayed cSCORE.
func (d *DDoSFilter) ConnectionScore() float64 {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.cScore = decay(d.cScore, time.Since(d.cUpdated))
	d.cUpdated = time.Now()
	return d.cScore
}

// AddRequestScore adds n to rSCORE after decaying it to the present.
func (d *DDoSFilter) AddRequestScore(n float64) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.rScore = decay(d.rScore, time.Since(d.rUpdated)) + n
	d.rUpdated = time.Now()
}

// AddConnectionScore adds n to cSCORE after decaying it to the present.
func (d *DDoSFilter) AddConnectionScore(n float64) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.cScore = decay(d.cScore, time.Since(d.cUpdated)) + n
	d.cUpdated = time.Now()
}

// Ban marks the peer banned for banDuration.
func (d *DDoSFilter) Ban() {
	d.ban.Set(banKey, true, cache.DefaultExpiration)
}

// Banned reports whether the peer is currently within a ban window.
func (d *DDoSFilter) Banned() bool {
	_, found := d.ban.Get(banKey)
	return found
}
