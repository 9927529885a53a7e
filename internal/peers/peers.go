// Package peers tracks the nodes heard from on the link. The hub feeds it
// from heartbeats; records survive restarts so the status API can tell a
// silent peer from one that was never there.
package peers

import (
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

const namespace = "peers"

// Record is one known peer.
type Record struct {
	Name      string    `msgpack:"name" json:"name"`
	Role      string    `msgpack:"role" json:"role"`
	Addr      string    `msgpack:"addr" json:"addr"`
	FirstSeen time.Time `msgpack:"first_seen" json:"first_seen"`
	LastSeen  time.Time `msgpack:"last_seen" json:"last_seen"`
	Count     uint64    `msgpack:"count" json:"count"`
	Active    bool      `msgpack:"active" json:"active"`
}

// RecordStore persists peer records between runs.
type RecordStore interface {
	PutRecord(namespace, key string, rec any) error
	ForEachRecord(namespace string, fn func(key string, raw []byte) error) error
}

// Registry is the in-memory working set backed by a RecordStore. It is owned
// by the node loop and not safe for concurrent use.
type Registry struct {
	store RecordStore
	stale time.Duration
	log   zerolog.Logger
	recs  map[string]*Record
}

// NewRegistry builds a registry marking peers inactive after stale without a
// heartbeat.
func NewRegistry(store RecordStore, stale time.Duration, log zerolog.Logger) *Registry {
	return &Registry{
		store: store,
		stale: stale,
		log:   log,
		recs:  make(map[string]*Record),
	}
}

// Load restores persisted records. Corrupt entries are skipped with a
// warning.
func (r *Registry) Load() error {
	return r.store.ForEachRecord(namespace, func(key string, raw []byte) error {
		var rec Record
		if err := msgpack.Unmarshal(raw, &rec); err != nil {
			r.log.Warn().Err(err).Str("key", key).Msg("Skipping corrupt peer record")
			return nil
		}
		r.recs[key] = &rec
		return nil
	})
}

// MarkSeen records a heartbeat from the named peer. Persistence failures are
// logged and the in-memory record kept.
func (r *Registry) MarkSeen(name, role, addr string, now time.Time) {
	rec, ok := r.recs[name]
	if !ok {
		rec = &Record{Name: name, Role: role, FirstSeen: now}
		r.recs[name] = rec
		r.log.Info().
			Str("name", name).
			Str("role", role).
			Str("addr", addr).
			Msg("New peer discovered")
	}

	rec.Role = role
	rec.Addr = addr
	rec.LastSeen = now
	rec.Count++
	rec.Active = true

	if err := r.store.PutRecord(namespace, name, rec); err != nil {
		r.log.Warn().Err(err).Str("name", name).Msg("Could not persist peer record")
	}
}

// Sweep deactivates peers whose last heartbeat is older than the stale
// threshold and returns how many changed.
func (r *Registry) Sweep(now time.Time) int {
	cutoff := now.Add(-r.stale)
	changed := 0

	for name, rec := range r.recs {
		if !rec.Active || !rec.LastSeen.Before(cutoff) {
			continue
		}
		rec.Active = false
		changed++

		r.log.Info().
			Str("name", name).
			Time("last_seen", rec.LastSeen).
			Msg("Peer marked inactive")

		if err := r.store.PutRecord(namespace, name, rec); err != nil {
			r.log.Warn().Err(err).Str("name", name).Msg("Could not persist peer record")
		}
	}
	return changed
}

// List returns all records ordered by name.
func (r *Registry) List() []Record {
	out := make([]Record, 0, len(r.recs))
	for _, rec := range r.recs {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
