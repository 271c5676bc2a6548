package cache

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Janitor sweeps expired entries out of the cache in the background, so
// entries that are never read again still leave memory and the persistence
// mirror.
type Janitor struct {
	cache    *Cache
	interval time.Duration

	triggerCh chan struct{}
	stopCh    chan struct{}
	mu        sync.Mutex
	running   bool
	lastSweep time.Time
}

// NewJanitor builds a janitor over the cache. A non-positive interval falls
// back to the cache TTL.
func NewJanitor(c *Cache, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = c.maxAge
	}
	return &Janitor{
		cache:     c,
		interval:  interval,
		triggerCh: make(chan struct{}, 1),
	}
}

// Start launches the sweep loop. Calling Start on a running janitor is a
// no-op; a stopped janitor can be started again.
func (j *Janitor) Start() {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return
	}
	// A fresh channel per run, so a restart is not killed by the close
	// from the previous Stop.
	j.stopCh = make(chan struct{})
	j.running = true
	stopCh := j.stopCh
	j.mu.Unlock()

	go j.loop(stopCh)
}

// Stop halts the sweep loop.
func (j *Janitor) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.running {
		return
	}
	close(j.stopCh)
	j.running = false
}

// Trigger requests an immediate sweep without blocking.
func (j *Janitor) Trigger() {
	select {
	case j.triggerCh <- struct{}{}:
	default:
	}
}

// LastSweep reports when the previous sweep completed.
func (j *Janitor) LastSweep() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastSweep
}

func (j *Janitor) loop(stopCh <-chan struct{}) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			j.sweep()
		case <-j.triggerCh:
			j.sweep()
		}
	}
}

func (j *Janitor) sweep() {
	evicted := j.cache.EvictExpired()
	if evicted > 0 {
		log.WithField("evicted", evicted).Debug("swept expired cache entries")
	}

	j.mu.Lock()
	j.lastSweep = time.Now()
	j.mu.Unlock()
}
