package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/five82/timebank/internal/ledger"
)

// Kind names an entity collection.
type Kind string

const (
	Users        Kind = "users"
	Sessions     Kind = "sessions"
	Transactions Kind = "transactions"
	UserSkills   Kind = "user_skills"
)

// Kinds lists every collection the cache holds.
var Kinds = []Kind{Users, Sessions, Transactions, UserSkills}

// ErrMissingID is returned when an upserted document has no usable id field.
var ErrMissingID = errors.New("document has no id")

// Change describes one entity touched by a write.
type Change struct {
	Kind    Kind
	ID      int64
	Removed bool
}

// Callback receives the changes of one write. It runs after the write is
// visible to readers and must not write to the cache itself.
type Callback func(changes []Change)

// Write is one document of a batch passed to Apply. Doc may be a
// ledger.Doc[T], a json.RawMessage, or any value that encodes to a JSON object.
type Write struct {
	Kind Kind
	Doc  any
}

type fields map[string]json.RawMessage

type subscriber struct {
	kinds  map[Kind]bool
	fn     Callback
	active atomic.Bool
}

// Store is the normalized in-memory entity store shared by every view.
// Documents are merged field by field: a field absent from or null in an
// incoming document never clears the cached value.
type Store struct {
	mu   sync.RWMutex
	docs map[Kind]map[int64]fields
	subs []*subscriber
	seq  uint64 // last commit ticket, guarded by mu

	// Notifications run outside mu, one commit at a time, in ticket order.
	turnMu sync.Mutex
	turn   *sync.Cond
	served uint64
}

// New returns an empty Store.
func New() *Store {
	s := &Store{docs: make(map[Kind]map[int64]fields)}
	s.turn = sync.NewCond(&s.turnMu)
	return s
}

// Upsert merges doc into the entity identified by kind and the document's id.
func (s *Store) Upsert(kind Kind, doc any) error {
	return s.Apply(Write{Kind: kind, Doc: doc})
}

// Apply merges several documents as one write. Either every document is
// applied or, when any of them cannot be decoded, none is. Each interested
// subscriber is notified once with the full change set.
func (s *Store) Apply(writes ...Write) error {
	if len(writes) == 0 {
		return nil
	}
	type decoded struct {
		kind Kind
		id   int64
		f    fields
	}
	pending := make([]decoded, 0, len(writes))
	for _, w := range writes {
		if w.Kind == "" {
			return fmt.Errorf("apply: empty kind")
		}
		f, id, err := decode(w.Doc)
		if err != nil {
			return fmt.Errorf("apply %s: %w", w.Kind, err)
		}
		pending = append(pending, decoded{kind: w.Kind, id: id, f: f})
	}

	s.mu.Lock()
	changes := make([]Change, 0, len(pending))
	seen := make(map[Change]bool, len(pending))
	for _, p := range pending {
		byID := s.docs[p.kind]
		if byID == nil {
			byID = make(map[int64]fields)
			s.docs[p.kind] = byID
		}
		current := byID[p.id]
		if current == nil {
			current = make(fields, len(p.f))
			byID[p.id] = current
		}
		for name, value := range p.f {
			current[name] = value
		}
		c := Change{Kind: p.kind, ID: p.id}
		if !seen[c] {
			seen[c] = true
			changes = append(changes, c)
		}
	}
	s.commit(changes)
	return nil
}

// Get returns the merged JSON document for an entity.
func (s *Store) Get(kind Kind, id int64) (json.RawMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.docs[kind][id]
	if !ok {
		return nil, false
	}
	raw, err := json.Marshal(f)
	if err != nil {
		return nil, false
	}
	return raw, true
}

// IDs returns the ids cached for kind in ascending order.
func (s *Store) IDs(kind Kind) []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.docs[kind]))
}

// Len returns the number of entities cached for kind.
func (s *Store) Len(kind Kind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs[kind])
}

// Invalidate drops the given entities, or every entity of kind when no id is given.
func (s *Store) Invalidate(kind Kind, ids ...int64) {
	s.mu.Lock()
	byID := s.docs[kind]
	if len(ids) == 0 {
		ids = slices.Sorted(maps.Keys(byID))
	}
	var changes []Change
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			continue
		}
		delete(byID, id)
		changes = append(changes, Change{Kind: kind, ID: id, Removed: true})
	}
	s.commit(changes)
}

// Reset drops every entity of every kind.
func (s *Store) Reset() {
	s.mu.Lock()
	var changes []Change
	for _, kind := range Kinds {
		for _, id := range slices.Sorted(maps.Keys(s.docs[kind])) {
			changes = append(changes, Change{Kind: kind, ID: id, Removed: true})
		}
	}
	s.docs = make(map[Kind]map[int64]fields)
	s.commit(changes)
}

// Snapshot returns a deep copy of the cached documents keyed by kind and id.
// Kinds with no entities are omitted.
func (s *Store) Snapshot() map[Kind]map[int64]json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[Kind]map[int64]json.RawMessage, len(s.docs))
	for kind, byID := range s.docs {
		if len(byID) == 0 {
			continue
		}
		dup := make(map[int64]json.RawMessage, len(byID))
		for id, f := range byID {
			raw, err := json.Marshal(f)
			if err != nil {
				continue
			}
			dup[id] = raw
		}
		out[kind] = dup
	}
	return out
}

// Subscribe registers fn for writes touching kind. The returned func
// unsubscribes; fn is not called for any write committed after that.
func (s *Store) Subscribe(kind Kind, fn Callback) (unsubscribe func()) {
	return s.SubscribeKinds([]Kind{kind}, fn)
}

// SubscribeKinds registers fn for writes touching any of kinds. A write that
// touches several of them produces a single call carrying every change of
// that write, including changes to kinds fn did not ask for.
func (s *Store) SubscribeKinds(kinds []Kind, fn Callback) (unsubscribe func()) {
	sub := &subscriber{kinds: make(map[Kind]bool, len(kinds)), fn: fn}
	for _, k := range kinds {
		sub.kinds[k] = true
	}
	sub.active.Store(true)

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.active.Store(false)
			s.mu.Lock()
			s.subs = slices.DeleteFunc(s.subs, func(other *subscriber) bool { return other == sub })
			s.mu.Unlock()
		})
	}
}

// commit must be called with s.mu held for writing. It releases the lock and
// notifies subscribers in subscription order once every earlier commit has
// finished notifying.
func (s *Store) commit(changes []Change) {
	if len(changes) == 0 {
		s.mu.Unlock()
		return
	}
	subs := slices.Clone(s.subs)
	s.seq++
	ticket := s.seq
	s.mu.Unlock()

	s.turnMu.Lock()
	for s.served+1 != ticket {
		s.turn.Wait()
	}
	s.turnMu.Unlock()
	defer func() {
		s.turnMu.Lock()
		s.served = ticket
		s.turn.Broadcast()
		s.turnMu.Unlock()
	}()

	for _, sub := range subs {
		if !sub.active.Load() {
			continue
		}
		if !sub.touches(changes) {
			continue
		}
		sub.fn(slices.Clone(changes))
	}
}

func (sub *subscriber) touches(changes []Change) bool {
	for _, c := range changes {
		if sub.kinds[c.Kind] {
			return true
		}
	}
	return false
}

func decode(doc any) (fields, int64, error) {
	var raw []byte
	switch v := doc.(type) {
	case nil:
		return nil, 0, fmt.Errorf("nil document")
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, 0, fmt.Errorf("encode document: %w", err)
		}
		raw = encoded
	}

	var all fields
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, 0, fmt.Errorf("decode document: %w", err)
	}
	var id int64
	idRaw, ok := all["id"]
	if !ok || json.Unmarshal(idRaw, &id) != nil || id <= 0 {
		return nil, 0, ErrMissingID
	}

	present := make(fields, len(all))
	for name, value := range all {
		if isNull(value) {
			continue
		}
		present[name] = append(json.RawMessage(nil), value...)
	}
	return present, id, nil
}

func isNull(value json.RawMessage) bool {
	return len(value) == 0 || bytes.Equal(bytes.TrimSpace(value), []byte("null"))
}

// Load decodes the cached entity into T.
func Load[T any](s *Store, kind Kind, id int64) (T, bool) {
	var out T
	raw, ok := s.Get(kind, id)
	if !ok {
		return out, false
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, false
	}
	return out, true
}

// LoadAll decodes every cached entity of kind into T, ordered by id.
func LoadAll[T any](s *Store, kind Kind) []T {
	s.mu.RLock()
	byID := s.docs[kind]
	ids := slices.Sorted(maps.Keys(byID))
	raws := make([]json.RawMessage, 0, len(ids))
	for _, id := range ids {
		raw, err := json.Marshal(byID[id])
		if err == nil {
			raws = append(raws, raw)
		}
	}
	s.mu.RUnlock()

	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			out = append(out, v)
		}
	}
	return out
}

// Writes converts decoded documents into batch entries for Apply.
func Writes[T any](kind Kind, docs ...ledger.Doc[T]) []Write {
	out := make([]Write, 0, len(docs))
	for _, d := range docs {
		out = append(out, Write{Kind: kind, Doc: d})
	}
	return out
}

// Preview decodes the entity doc would produce if it were upserted into kind,
// without writing it.
func Preview[T any](s *Store, kind Kind, doc any) (T, error) {
	var out T
	f, id, err := decode(doc)
	if err != nil {
		return out, err
	}
	s.mu.RLock()
	merged := maps.Clone(s.docs[kind][id])
	s.mu.RUnlock()
	if merged == nil {
		merged = make(fields, len(f))
	}
	maps.Copy(merged, f)

	raw, err := json.Marshal(merged)
	if err != nil {
		return out, fmt.Errorf("preview %s %d: %w", kind, id, err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("preview %s %d: %w", kind, id, err)
	}
	return out, nil
}
