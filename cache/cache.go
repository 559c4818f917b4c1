// Package cache implements the shared query cache keyed by (name, type).
package cache

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/miekg/dns"
	"github.com/sinkhole-dns/sinkhole/dnsutil"
	"github.com/sinkhole-dns/sinkhole/upstream"
)

// Key identifies a cache slot. Name is normalized with dnsutil.Normalize.
type Key struct {
	Name string
	Type uint16
}

// NewKey returns the key for question name and type.
func NewKey(name string, qtype uint16) Key {
	return Key{Name: dnsutil.Normalize(name), Type: qtype}
}

func (k Key) String() string {
	return k.Name + "/" + dnsutil.TypeString(k.Type)
}

type entry struct {
	rcode   int
	records []dns.RR
	expiry  time.Time
}

// QueryCache is safe for concurrent use. One RWMutex guards the whole map,
// so a Put or Sweep briefly blocks every reader.
type QueryCache struct {
	mu sync.RWMutex
	m  map[Key]*entry

	max   int
	clock clockwork.Clock
}

// New returns an empty cache holding at most max entries; max <= 0 means
// no limit.
func New(max int, clock clockwork.Clock) *QueryCache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &QueryCache{
		m:     make(map[Key]*entry),
		max:   max,
		clock: clock,
	}
}

// Get returns a copy of the cached answer for key. Entries whose expiry is
// not strictly after now are misses. Record TTLs in the copy are set to the
// remaining lifetime.
func (c *QueryCache) Get(key Key) (upstream.Answer, bool) {
	ans, ok := c.Lookup(key)
	if !ok {
		cacheMisses.Inc()
		return ans, false
	}

	cacheHits.Inc()

	return ans, true
}

// Lookup is Get without hit and miss accounting, for callers that re-check
// a key the request already looked up.
func (c *QueryCache) Lookup(key Key) (upstream.Answer, bool) {
	now := c.clock.Now()

	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()

	if !ok || !e.expiry.After(now) {
		return upstream.Answer{}, false
	}

	// entries are never mutated after insertion, copying outside the lock is safe
	remaining := uint32(e.expiry.Sub(now) / time.Second)
	records := dnsutil.CopyRRs(e.records)
	for _, rr := range records {
		if rr.Header().Ttl > remaining {
			rr.Header().Ttl = remaining
		}
	}

	return upstream.Answer{Rcode: e.rcode, Records: records}, true
}

// Put stores ans under key until now+ttl, replacing any previous entry.
// A non-positive ttl stores nothing.
func (c *QueryCache) Put(key Key, ans upstream.Answer, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	e := &entry{
		rcode:   ans.Rcode,
		records: dnsutil.CopyRRs(ans.Records),
		expiry:  c.clock.Now().Add(ttl),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.m[key]; !exists && c.max > 0 && len(c.m) >= c.max {
		c.evictOne()
	}

	c.m[key] = e
	cacheEntries.Set(float64(len(c.m)))
}

// evictOne drops one arbitrary entry. Expired entries are left to the
// sweeper. c.mu must be held for writing.
func (c *QueryCache) evictOne() {
	for k := range c.m {
		delete(c.m, k)
		cacheEvictions.WithLabelValues("capacity").Inc()
		return
	}
}

// Sweep removes every entry whose expiry is at or before now and returns
// how many were removed.
func (c *QueryCache) Sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.sweep(now)
	cacheEntries.Set(float64(len(c.m)))

	return n
}

func (c *QueryCache) sweep(now time.Time) int {
	n := 0
	for k, e := range c.m {
		if !e.expiry.After(now) {
			delete(c.m, k)
			n++
		}
	}

	cacheEvictions.WithLabelValues("expired").Add(float64(n))

	return n
}

// Remove deletes key and reports whether it was present.
func (c *QueryCache) Remove(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.m[key]
	delete(c.m, key)
	cacheEntries.Set(float64(len(c.m)))

	return ok
}

// Len returns the number of stored entries, expired or not.
func (c *QueryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.m)
}

// TTL returns how long to keep records: the smallest record TTL capped at
// max, or negative when there are no records.
func TTL(records []dns.RR, negative, max time.Duration) time.Duration {
	min, ok := dnsutil.MinTTL(records)
	if !ok {
		return negative
	}

	ttl := time.Duration(min) * time.Second
	if max > 0 && ttl > max {
		ttl = max
	}

	return ttl
}
