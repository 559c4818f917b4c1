// Package middleware runs each query through an ordered chain of handlers.
// Handler packages register a constructor from init; Setup builds one
// pipeline from those constructors and the shared resources.
package middleware

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/semihalev/zlog/v2"
	"github.com/sinkhole-dns/sinkhole/cache"
	"github.com/sinkhole-dns/sinkhole/config"
	"github.com/sinkhole-dns/sinkhole/denylist"
	"github.com/sinkhole-dns/sinkhole/upstream"
)

// Resources are the shared components every handler may use. They are
// created once by the caller and never copied.
type Resources struct {
	Config   *config.Config
	Denylist *denylist.Holder
	Cache    *cache.QueryCache
	Upstream upstream.Resolver
}

// Constructor builds a handler. A nil handler with a nil error leaves the
// handler out of the pipeline.
type Constructor func(*Resources) (Handler, error)

type registration struct {
	name string
	new  Constructor
}

var (
	mu            sync.RWMutex
	registrations []registration
)

// order is the position of each known handler in the pipeline. Handlers
// not listed run after these, in registration order.
var order = []string{
	"metrics",
	"recovery",
	"accesslist",
	"ratelimit",
	"accesslog",
	"blocklist",
	"cache",
	"forwarder",
}

// ErrNoResources is returned by Setup when a required resource is missing.
var ErrNoResources = errors.New("middleware: resources are incomplete")

// Register a handler constructor under name.
func Register(name string, new Constructor) {
	zlog.Debug("Register middleware", "name", name)

	mu.Lock()
	defer mu.Unlock()

	for i, r := range registrations {
		if r.name == name {
			registrations[i].new = new
			return
		}
	}

	registrations = append(registrations, registration{name: name, new: new})
}

// List return names of registered handlers in pipeline order.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()

	list := make([]string, 0, len(registrations))
	for _, r := range sorted() {
		list = append(list, r.name)
	}

	return list
}

func sorted() []registration {
	regs := make([]registration, len(registrations))
	copy(regs, registrations)

	rank := func(name string) int {
		for i, n := range order {
			if n == name {
				return i
			}
		}
		return len(order)
	}

	sort.SliceStable(regs, func(i, j int) bool {
		return rank(regs[i].name) < rank(regs[j].name)
	})

	return regs
}

// Pipeline is the ordered set of handlers built by Setup.
type Pipeline struct {
	handlers []Handler
}

// Setup builds a pipeline from every registered handler.
func Setup(res *Resources) (*Pipeline, error) {
	if res == nil || res.Config == nil || res.Denylist == nil || res.Cache == nil || res.Upstream == nil {
		return nil, ErrNoResources
	}

	mu.RLock()
	regs := sorted()
	mu.RUnlock()

	p := &Pipeline{}
	for _, r := range regs {
		h, err := r.new(res)
		if err != nil {
			return nil, fmt.Errorf("middleware %s: %w", r.name, err)
		}

		if h == nil {
			zlog.Debug("Middleware disabled", "name", r.name)
			continue
		}

		p.handlers = append(p.handlers, h)
	}

	return p, nil
}

// Handlers return the handlers in run order.
func (p *Pipeline) Handlers() []Handler {
	return p.handlers
}

// Get return a handler by name, or nil.
func (p *Pipeline) Get(name string) Handler {
	for _, h := range p.handlers {
		if h.Name() == name {
			return h
		}
	}

	return nil
}

// NewChain returns a fresh chain over the pipeline's handlers.
func (p *Pipeline) NewChain() *Chain {
	return NewChain(p.handlers)
}
