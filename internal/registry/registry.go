// Package registry tracks old→new identities of restored resources for the
// duration of one restore run.
package registry

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/ALT-F4-LLC/spacerestore/internal/model"
)

// MapKind selects one of the two maps held by an Entry.
type MapKind string

const (
	IDs   MapKind = "oldIdToNewId"
	UUIDs MapKind = "oldUuidToNewUuid"
)

// Entry holds the identity mappings of one resource type.
type Entry struct {
	IDs   map[int64]int64
	UUIDs map[string]string
}

// NewEntry returns an empty Entry.
func NewEntry() *Entry {
	return &Entry{
		IDs:   make(map[int64]int64),
		UUIDs: make(map[string]string),
	}
}

// Record stores the identities of a restored resource. Zero ids and empty
// uuids are not recorded.
func (e *Entry) Record(oldID, newID int64, oldUUID, newUUID string) {
	if oldID != 0 {
		e.IDs[oldID] = newID
	}
	if oldUUID != "" && newUUID != "" {
		e.UUIDs[oldUUID] = newUUID
	}
}

// NewID returns the new id recorded for oldID.
func (e *Entry) NewID(oldID int64) (int64, bool) {
	id, ok := e.IDs[oldID]
	return id, ok
}

// NewUUID returns the new uuid recorded for oldUUID.
func (e *Entry) NewUUID(oldUUID string) (string, bool) {
	uuid, ok := e.UUIDs[oldUUID]
	return uuid, ok
}

// Lookup resolves a raw field value through the map selected by kind. Values
// of the wrong shape (a string for IDs, a number for UUIDs) are not found.
func (e *Entry) Lookup(kind MapKind, value any) (any, bool) {
	switch kind {
	case IDs:
		old, ok := model.ToInt64(value)
		if !ok {
			return nil, false
		}
		if id, ok := e.IDs[old]; ok {
			return id, true
		}
		return nil, false
	case UUIDs:
		old, ok := value.(string)
		if !ok {
			return nil, false
		}
		if uuid, ok := e.UUIDs[old]; ok {
			return uuid, true
		}
		return nil, false
	default:
		return nil, false
	}
}

// UUIDPair is one old→new uuid mapping.
type UUIDPair struct {
	Old string
	New string
}

// UUIDPairs returns the uuid mappings sorted by old uuid.
func (e *Entry) UUIDPairs() []UUIDPair {
	pairs := make([]UUIDPair, 0, len(e.UUIDs))
	for o, n := range e.UUIDs {
		pairs = append(pairs, UUIDPair{Old: o, New: n})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Old < pairs[j].Old })
	return pairs
}

// Registry holds one Entry per resource type. A single Registry is created
// per run and passed explicitly to every component that reads or writes
// mappings. It is not safe for concurrent use; restores run sequentially.
type Registry struct {
	entries map[model.ResourceType]*Entry
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[model.ResourceType]*Entry)}
}

// Get returns the entry for t, creating an empty one on first access. The
// same *Entry is returned on every call until Init replaces it.
func (r *Registry) Get(t model.ResourceType) *Entry {
	e, ok := r.entries[t]
	if !ok {
		e = NewEntry()
		r.entries[t] = e
	}
	return e
}

// Init replaces the entry for t with an empty one, discarding prior mappings.
func (r *Registry) Init(t model.ResourceType) *Entry {
	e := NewEntry()
	r.entries[t] = e
	return e
}

// Has reports whether an entry exists for t without creating one.
func (r *Registry) Has(t model.ResourceType) bool {
	_, ok := r.entries[t]
	return ok
}

// Types returns the types with an entry, sorted by name.
func (r *Registry) Types() []model.ResourceType {
	types := make([]model.ResourceType, 0, len(r.entries))
	for t := range r.entries {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// EntrySnapshot is the serializable form of an Entry. Integer keys are
// encoded as decimal strings.
type EntrySnapshot struct {
	OldIDToNewID     map[string]int64  `json:"oldIdToNewId"`
	OldUUIDToNewUUID map[string]string `json:"oldUuidToNewUuid"`
}

// Snapshot is the serializable form of a Registry.
type Snapshot map[model.ResourceType]EntrySnapshot

// ToObject exports the registry as a Snapshot.
func (r *Registry) ToObject() Snapshot {
	snap := make(Snapshot, len(r.entries))
	for t, e := range r.entries {
		es := EntrySnapshot{
			OldIDToNewID:     make(map[string]int64, len(e.IDs)),
			OldUUIDToNewUUID: make(map[string]string, len(e.UUIDs)),
		}
		for o, n := range e.IDs {
			es.OldIDToNewID[strconv.FormatInt(o, 10)] = n
		}
		for o, n := range e.UUIDs {
			es.OldUUIDToNewUUID[o] = n
		}
		snap[t] = es
	}
	return snap
}

// FromObject builds a Registry from a Snapshot. It fails only when an id key
// is not a base-10 integer.
func FromObject(snap Snapshot) (*Registry, error) {
	r := New()
	for t, es := range snap {
		e := r.Init(t)
		for k, n := range es.OldIDToNewID {
			o, err := strconv.ParseInt(k, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("registry %s: invalid id key %q: %w", t, k, err)
			}
			e.IDs[o] = n
		}
		for o, n := range es.OldUUIDToNewUUID {
			e.UUIDs[o] = n
		}
	}
	return r, nil
}

// Merge copies every mapping of other into r, overwriting existing keys.
func (r *Registry) Merge(other *Registry) {
	for t, oe := range other.entries {
		e := r.Get(t)
		for o, n := range oe.IDs {
			e.IDs[o] = n
		}
		for o, n := range oe.UUIDs {
			e.UUIDs[o] = n
		}
	}
}
