package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// ErrAgentNotFound is returned when an agent id doesn't exist.
var ErrAgentNotFound = fmt.Errorf("agent not found")

// DuplicateAgentError is returned by Add when the id is already taken.
type DuplicateAgentError struct {
	ID string
}

func (e *DuplicateAgentError) Error() string {
	return fmt.Sprintf("agent %s already registered", e.ID)
}

// Snapshot is an immutable view of the active descriptor set plus the
// trigger-rule table. Runs hold one snapshot for their whole lifetime,
// so a concurrent Reload never changes a plan mid-flight.
type Snapshot struct {
	Version  int64
	Triggers []TriggerRule

	byID    map[string]*Descriptor
	ordered []*Descriptor // sorted by (priority, id)
}

// Get returns the descriptor for id.
func (s *Snapshot) Get(id string) (*Descriptor, bool) {
	d, ok := s.byID[id]
	return d, ok
}

// Agents returns all descriptors ordered by (priority, id).
func (s *Snapshot) Agents() []*Descriptor {
	return s.ordered
}

// Len returns the number of descriptors in the snapshot.
func (s *Snapshot) Len() int { return len(s.byID) }

// agentsFile is the on-disk shape of the agents configuration.
type agentsFile struct {
	Agents   []Descriptor  `json:"agents"`
	Triggers []TriggerRule `json:"triggers,omitempty"`
}

// Registry owns the descriptor catalog. The active set is swapped
// atomically: readers that already took a snapshot keep it, new runs
// see the new set, and readers never wait on a writer. Writers
// (Load/Add/Remove) build the next set from the current one, so they
// are serialized by mu; without it two concurrent swaps would lose one
// writer's changes.
type Registry struct {
	path    string
	mu      sync.Mutex // serializes writers; readers go through current
	current atomic.Pointer[Snapshot]
	version atomic.Int64
	logger  *zap.Logger
}

// New creates a registry backed by the given agents config file.
func New(path string, logger *zap.Logger) *Registry {
	r := &Registry{path: path, logger: logger}
	r.current.Store(&Snapshot{byID: map[string]*Descriptor{}})
	return r
}

// Load reads, validates and activates the agents file. On validation
// failure the previously active set (possibly empty) stays in effect.
func (r *Registry) Load() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap, err := r.loadFile()
	if err != nil {
		return err
	}
	r.swap(snap)
	r.logger.Info("agent registry loaded",
		zap.Int("agents", snap.Len()),
		zap.Int("triggers", len(snap.Triggers)))
	return nil
}

// Reload re-reads the agents file and swaps it in atomically. Identical
// contract to Load; the name exists for the caller-facing surface.
func (r *Registry) Reload() error {
	return r.Load()
}

// Validate re-reads the agents file and returns every problem found
// without touching the active set.
func (r *Registry) Validate() []string {
	_, err := r.loadFile()
	if err == nil {
		return nil
	}
	var cfgErr *ConfigurationError
	if As(err, &cfgErr) {
		return cfgErr.Issues
	}
	return []string{err.Error()}
}

// Snapshot returns the active descriptor set.
func (r *Registry) Snapshot() *Snapshot {
	return r.current.Load()
}

// Get returns the descriptor for id from the active set.
func (r *Registry) Get(id string) (*Descriptor, bool) {
	return r.current.Load().Get(id)
}

// Add registers a descriptor dynamically. Fails with
// DuplicateAgentError if the id exists and ConfigurationError if the
// descriptor itself is invalid.
func (r *Registry) Add(d Descriptor) error {
	if issues := validateDescriptor(&d, 0); len(issues) > 0 {
		return &ConfigurationError{Issues: issues}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.current.Load()
	if _, ok := old.Get(d.ID); ok {
		return &DuplicateAgentError{ID: d.ID}
	}

	descs := append(descriptorValues(old), d)
	r.swap(r.build(descs, old.Triggers))
	r.logger.Info("agent added", zap.String("id", d.ID))
	return nil
}

// Remove drops a descriptor from the active set. Removing an unknown
// id is a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.current.Load()
	if _, ok := old.Get(id); !ok {
		return
	}
	var descs []Descriptor
	for _, d := range descriptorValues(old) {
		if d.ID != id {
			descs = append(descs, d)
		}
	}
	r.swap(r.build(descs, old.Triggers))
	r.logger.Info("agent removed", zap.String("id", id))
}

func (r *Registry) loadFile() (*Snapshot, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("read agents config %s: %w", r.path, err)
	}
	var file agentsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse agents config %s: %w", r.path, err)
	}
	if issues := validateAll(file.Agents); len(issues) > 0 {
		return nil, &ConfigurationError{Issues: issues}
	}
	return r.build(file.Agents, file.Triggers), nil
}

func (r *Registry) build(descs []Descriptor, triggers []TriggerRule) *Snapshot {
	snap := &Snapshot{
		Version:  r.version.Add(1),
		Triggers: triggers,
		byID:     make(map[string]*Descriptor, len(descs)),
	}
	for i := range descs {
		d := descs[i]
		snap.byID[d.ID] = &d
		snap.ordered = append(snap.ordered, &d)
	}
	sort.Slice(snap.ordered, func(i, j int) bool {
		a, b := snap.ordered[i], snap.ordered[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.ID < b.ID
	})
	return snap
}

func (r *Registry) swap(snap *Snapshot) {
	r.current.Store(snap)
}

func descriptorValues(s *Snapshot) []Descriptor {
	out := make([]Descriptor, 0, len(s.ordered))
	for _, d := range s.ordered {
		out = append(out, *d)
	}
	return out
}
