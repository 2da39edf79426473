package script

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"modernc.org/quickjs"
)

// Inspector is a loaded unit of inspection code: given one deserialized
// object it produces one display string. Implementations must be safe for
// concurrent use.
type Inspector interface {
	Inspect(obj any, deadline time.Time) (string, error)
	Close()
}

// jsInspector wraps one QuickJS VM holding an evaluated inspection script.
// A VM is single-threaded, so invocations are serialized with a mutex.
type jsInspector struct {
	mu     sync.Mutex
	vm     *quickjs.VM
	closed bool
}

// Inspect marshals obj into the VM, calls the script's inspect function and
// returns its result as a string. When the deadline passes mid-call the VM
// is interrupted best effort; the evaluation then fails and the error is
// returned.
func (i *jsInspector) Inspect(obj any, deadline time.Time) (string, error) {
	payload, err := json.Marshal(obj)
	if err != nil {
		return "", fmt.Errorf("marshaling object for interpreter: %w", err)
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return "", fmt.Errorf("inspector is closed")
	}

	// The payload crosses into the VM as a property value, not as source
	// text: building a JS string literal would mangle runes a Go %q escape
	// and a JS escape disagree on.
	if err := i.setGlobal("__payload", string(payload)); err != nil {
		return "", fmt.Errorf("injecting object: %w", err)
	}

	var interrupted atomic.Bool
	if !deadline.IsZero() {
		watchdog := time.AfterFunc(time.Until(deadline), func() {
			interrupted.Store(true)
			i.vm.Interrupt()
		})
		defer watchdog.Stop()
	}

	result, err := i.vm.Eval(`
		(function() {
			var obj = JSON.parse(globalThis.__payload);
			delete globalThis.__payload;
			return String(inspect(obj));
		})()
	`, quickjs.EvalGlobal)
	if err != nil {
		if interrupted.Load() {
			return "", fmt.Errorf("inspection interrupted at deadline: %w", err)
		}
		return "", fmt.Errorf("inspect call failed: %w", err)
	}

	s, ok := result.(string)
	if !ok {
		return fmt.Sprint(result), nil
	}
	return s, nil
}

// Close releases the VM. Safe to call more than once; blocks until an
// in-flight invocation returns.
func (i *jsInspector) Close() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return
	}
	i.closed = true
	i.vm.Close()
}

// setGlobal sets a property on the VM's global object; the value is
// converted by the engine, so no source-level escaping is involved.
func (i *jsInspector) setGlobal(name string, value any) error {
	atom, err := i.vm.NewAtom(name)
	if err != nil {
		return fmt.Errorf("creating atom %q: %w", name, err)
	}
	glob := i.vm.GlobalObject()
	defer glob.Free()
	return glob.SetProperty(atom, value)
}
