// Package script maintains the registry of per-type inspection scripts and
// runs them in an embedded JavaScript interpreter. A script file defines a
// single function inspect(obj) returning the hover preview string for one
// deserialized object.
package script

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Atiyakh/dyright/internal/log"
)

// Entry is the registry's record for one type name. Entries are immutable
// once published: Register and Reload replace the whole record, so a
// borrowed Entry is a consistent snapshot.
type Entry struct {
	TypeName   string
	ScriptPath string
	Checksum   string
	LoadID     string
	LoadedAt   time.Time
	// Inspector is nil when the last load failed; LoadError then carries
	// the reason. The entry persists in that state until a successful
	// Register or Reload.
	Inspector Inspector
	LoadError string
}

// Loaded reports whether the entry currently holds an invocable inspector.
func (e *Entry) Loaded() bool {
	return e.Inspector != nil
}

// Registry is a thread-safe mapping from type name to inspection script.
// The mutex guards only the map; it is never held across a load or an
// inspector invocation.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*Entry
	order   []string

	scriptsDir    string
	memoryLimitMB int
	logger        *slog.Logger

	// loadFn is swapped out in tests.
	loadFn func(path string, memoryLimitMB int) (Inspector, loadInfo, error)
}

// NewRegistry creates an empty registry. Relative script paths passed to
// Register resolve against scriptsDir; memoryLimitMB caps each loaded VM.
func NewRegistry(scriptsDir string, memoryLimitMB int) *Registry {
	return &Registry{
		entries:       make(map[string]*Entry),
		scriptsDir:    scriptsDir,
		memoryLimitMB: memoryLimitMB,
		logger:        log.WithComponent("script"),
		loadFn:        loadScript,
	}
}

// Register creates or overwrites the entry for typeName and loads the
// script synchronously. On load failure the error is recorded on the entry
// and false is returned; the entry still exists so the failure can be
// diagnosed via Get and retried via Reload.
func (r *Registry) Register(typeName, scriptPath string) bool {
	path := scriptPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.scriptsDir, path)
	}

	entry := &Entry{TypeName: typeName, ScriptPath: path}
	insp, info, err := r.loadFn(path, r.memoryLimitMB)
	if err != nil {
		entry.LoadError = err.Error()
		r.logger.Error("failed to load script", "type_name", typeName, "path", path, "error", err)
	} else {
		entry.Inspector = insp
		entry.Checksum = info.Checksum
		entry.LoadID = info.LoadID
		entry.LoadedAt = info.LoadedAt
		r.logger.Info("loaded script", "type_name", typeName, "path", path,
			"load_id", info.LoadID, "checksum", info.Checksum)
	}

	r.mu.Lock()
	prev, existed := r.entries[typeName]
	r.entries[typeName] = entry
	if !existed {
		r.order = append(r.order, typeName)
	}
	r.mu.Unlock()

	if existed && prev.Inspector != nil {
		prev.Inspector.Close()
	}

	return entry.Inspector != nil
}

// Get returns the entry for typeName, or nil. An exact match is tried
// first; when the name has more than two dot-separated segments the lookup
// falls back once to the shortened form firstSegment.lastSegment (so a
// fully-qualified runtime name like pandas.core.frame.DataFrame finds a
// registration under pandas.DataFrame). No further heuristics apply.
func (r *Registry) Get(typeName string) *Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[typeName]; ok {
		return e
	}

	parts := strings.Split(typeName, ".")
	if len(parts) > 2 {
		short := parts[0] + "." + parts[len(parts)-1]
		if e, ok := r.entries[short]; ok {
			return e
		}
	}

	return nil
}

// Reload re-executes the load step for an existing entry's recorded script
// path. Unknown keys return false. The previous callable is always
// replaced: a failed reload leaves the entry without a callable and with
// LoadError set, so subsequent inspections fail deterministically until a
// reload succeeds.
func (r *Registry) Reload(typeName string) bool {
	r.mu.Lock()
	current, ok := r.entries[typeName]
	r.mu.Unlock()
	if !ok {
		return false
	}

	entry := &Entry{TypeName: typeName, ScriptPath: current.ScriptPath}
	insp, info, err := r.loadFn(current.ScriptPath, r.memoryLimitMB)
	if err != nil {
		entry.LoadError = err.Error()
		r.logger.Error("failed to reload script", "type_name", typeName, "path", current.ScriptPath, "error", err)
	} else {
		entry.Inspector = insp
		entry.Checksum = info.Checksum
		entry.LoadID = info.LoadID
		entry.LoadedAt = info.LoadedAt
		r.logger.Info("reloaded script", "type_name", typeName, "path", current.ScriptPath,
			"load_id", info.LoadID, "checksum", info.Checksum)
	}

	r.mu.Lock()
	prev, stillThere := r.entries[typeName]
	r.entries[typeName] = entry
	if !stillThere {
		// Entry was removed-and-readded concurrently; keep ordering sane.
		r.order = append(r.order, typeName)
	}
	r.mu.Unlock()

	if stillThere && prev != current && prev.Inspector != nil {
		// A concurrent Register won the race; its inspector is now
		// superseded by this reload.
		prev.Inspector.Close()
	}
	if current.Inspector != nil {
		current.Inspector.Close()
	}

	return entry.Inspector != nil
}

// Types returns all registered type names in insertion order of first
// registration, snapshot at call time.
func (r *Registry) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Entries returns a snapshot of all entries in registration order.
func (r *Registry) Entries() []*Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Entry, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name])
	}
	return out
}

// Close releases every loaded inspector.
func (r *Registry) Close() {
	r.mu.Lock()
	entries := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.entries = make(map[string]*Entry)
	r.order = nil
	r.mu.Unlock()

	for _, e := range entries {
		if e.Inspector != nil {
			e.Inspector.Close()
		}
	}
}
