package endpoint

import (
	"net/url"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/kbukum/sparqlkit/errors"
	"github.com/kbukum/sparqlkit/logger"
)

// Entry is one registered key.
type Entry struct {
	Key      string
	Prefix   bool
	Override Override
}

// snapshot is an immutable view of the registry.
type snapshot struct {
	exact map[string]Override
	// prefixes is ordered longest key first.
	prefixes []Entry
}

var emptySnapshot = &snapshot{exact: map[string]Override{}}

// Registry maps endpoint URLs to overrides. It is safe for concurrent use:
// readers load a snapshot atomically and writers, serialised by a mutex,
// publish a fresh copy.
type Registry struct {
	mu   sync.Mutex
	snap atomic.Pointer[snapshot]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	r := &Registry{}
	r.snap.Store(emptySnapshot)
	return r
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry used by clients that were not
// given one.
func Default() *Registry {
	return defaultRegistry
}

// Register maps key to a modifier. See RegisterOverride.
func (r *Registry) Register(key string, m Modifier) error {
	return r.RegisterOverride(key, Override{Modifier: m})
}

// RegisterOverride maps key to o, replacing any previous entry. A key ending
// in "/" is a prefix; any other key is exact. Keys must be absolute URLs.
func (r *Registry) RegisterOverride(key string, o Override) error {
	if err := checkKey(key); err != nil {
		return err
	}
	r.update(func(s *snapshot) {
		if isPrefix(key) {
			s.prefixes = append(removeKey(s.prefixes, key), Entry{Key: key, Prefix: true, Override: o})
			sortPrefixes(s.prefixes)
		} else {
			s.exact[key] = o
		}
	})
	logger.Get("endpoint").Debug("endpoint override registered", logger.Fields(logger.FieldOverride, key))
	return nil
}

// RegisterPrefix maps a prefix key to o. The key must end in "/".
func (r *Registry) RegisterPrefix(key string, o Override) error {
	if !isPrefix(key) {
		return errors.MalformedKey(key, "prefix keys must end in /")
	}
	return r.RegisterOverride(key, o)
}

// Remove deletes key and reports whether it was present.
func (r *Registry) Remove(key string) bool {
	removed := false
	r.update(func(s *snapshot) {
		if isPrefix(key) {
			n := len(s.prefixes)
			s.prefixes = removeKey(s.prefixes, key)
			removed = len(s.prefixes) != n
			return
		}
		if _, ok := s.exact[key]; ok {
			delete(s.exact, key)
			removed = true
		}
	})
	if removed {
		logger.Get("endpoint").Debug("endpoint override removed", logger.Fields(logger.FieldOverride, key))
	}
	return removed
}

// Clear removes every entry.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap.Store(emptySnapshot)
}

// Lookup returns the override for endpointURL: the exact entry if there is
// one, otherwise the longest registered prefix of endpointURL.
func (r *Registry) Lookup(endpointURL string) (Override, bool) {
	s := r.snap.Load()
	if o, ok := s.exact[endpointURL]; ok {
		return o, true
	}
	for _, e := range s.prefixes {
		if strings.HasPrefix(endpointURL, e.Key) {
			return e.Override, true
		}
	}
	return Override{}, false
}

// Keys returns the registered keys in sorted order.
func (r *Registry) Keys() []string {
	s := r.snap.Load()
	keys := make([]string, 0, len(s.exact)+len(s.prefixes))
	for k := range s.exact {
		keys = append(keys, k)
	}
	for _, e := range s.prefixes {
		keys = append(keys, e.Key)
	}
	sort.Strings(keys)
	return keys
}

// Entries returns a copy of every entry, exact keys first, each group sorted.
func (r *Registry) Entries() []Entry {
	s := r.snap.Load()
	exact := make([]string, 0, len(s.exact))
	for k := range s.exact {
		exact = append(exact, k)
	}
	sort.Strings(exact)
	out := make([]Entry, 0, len(exact)+len(s.prefixes))
	for _, k := range exact {
		out = append(out, Entry{Key: k, Override: s.exact[k]})
	}
	prefixes := append([]Entry(nil), s.prefixes...)
	sort.Slice(prefixes, func(i, j int) bool { return prefixes[i].Key < prefixes[j].Key })
	return append(out, prefixes...)
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	s := r.snap.Load()
	return len(s.exact) + len(s.prefixes)
}

// update applies fn to a private copy of the current snapshot and publishes it.
func (r *Registry) update(fn func(s *snapshot)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snap.Load()
	next := &snapshot{
		exact:    make(map[string]Override, len(cur.exact)),
		prefixes: append([]Entry(nil), cur.prefixes...),
	}
	for k, v := range cur.exact {
		next.exact[k] = v
	}
	fn(next)
	r.snap.Store(next)
}

func isPrefix(key string) bool {
	return strings.HasSuffix(key, "/")
}

func checkKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.MalformedKey(key, "key is empty")
	}
	u, err := url.Parse(key)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.MalformedKey(key, "key is not an absolute URL")
	}
	return nil
}

func removeKey(entries []Entry, key string) []Entry {
	out := entries[:0]
	for _, e := range entries {
		if e.Key != key {
			out = append(out, e)
		}
	}
	return out
}

func sortPrefixes(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return len(entries[i].Key) > len(entries[j].Key)
	})
}
