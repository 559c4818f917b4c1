// Package denylist loads the set of blocked domain names.
//
// A Store is immutable once built. The Holder gives handlers a stable
// reference that can be pointed at a freshly built Store by the Watcher.
package denylist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/miekg/dns"
	"github.com/semihalev/zlog/v2"
	"github.com/sinkhole-dns/sinkhole/dnsutil"
)

// ErrLoad is wrapped by every error returned from Load.
var ErrLoad = errors.New("denylist load failed")

// Store is an immutable set of normalized domain names.
type Store struct {
	m       map[string]struct{}
	skipped int
}

// Parse builds a Store from block-list lines read from r.
func Parse(r io.Reader) (*Store, error) {
	s := &Store{m: make(map[string]struct{}, 4096)}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		name, ok := parseLine(scanner.Text())
		if !ok {
			s.skipped++
			continue
		}

		s.m[name] = struct{}{}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning denylist: %w", err)
	}

	return s, nil
}

// Load reads and parses the denylist file at path.
func Load(path string) (*Store, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	defer file.Close()

	s, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoad, path, err)
	}

	zlog.Info("Denylist loaded", "path", path, "total", s.Len(), "skipped", s.skipped)

	return s, nil
}

// parseLine returns the normalized name on line. Blank lines, comments and
// anything that is not a valid domain name report false.
func parseLine(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
		return "", false
	}

	fields := strings.Fields(line)
	if len(fields) > 1 && !strings.HasPrefix(fields[1], "#") {
		// hosts file form: "0.0.0.0 ads.example.com"
		line = fields[1]
	} else {
		line = fields[0]
	}

	line = strings.TrimPrefix(line, "||")
	line = strings.TrimSuffix(line, "^")

	name := dnsutil.Normalize(line)
	if name == "" {
		return "", false
	}

	if !validName(name) {
		return "", false
	}

	return name, true
}

// validName rejects names carrying block-list modifiers ($, /, *, @@) that a
// flat exact-match set cannot express.
func validName(name string) bool {
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-', c == '_', c == '.':
		default:
			return false
		}
	}

	_, ok := dns.IsDomainName(name)

	return ok
}

// Contains reports whether name is denied. name may carry a trailing dot and
// any letter case.
func (s *Store) Contains(name string) bool {
	if s == nil {
		return false
	}

	_, ok := s.m[dnsutil.Normalize(name)]

	return ok
}

// Len returns the number of names in the store.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}

	return len(s.m)
}

// Skipped returns how many input lines were ignored while parsing.
func (s *Store) Skipped() int { return s.skipped }

// Holder points at the Store currently in use.
type Holder struct {
	p atomic.Pointer[Store]
}

// NewHolder returns a Holder serving s.
func NewHolder(s *Store) *Holder {
	h := new(Holder)
	h.p.Store(s)

	return h
}

// Current returns the Store in use.
func (h *Holder) Current() *Store { return h.p.Load() }

// Swap replaces the Store in use and returns the previous one.
func (h *Holder) Swap(s *Store) *Store { return h.p.Swap(s) }

// Contains reports whether name is denied by the current Store.
func (h *Holder) Contains(name string) bool { return h.Current().Contains(name) }

// Len returns the size of the current Store.
func (h *Holder) Len() int { return h.Current().Len() }
