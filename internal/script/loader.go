package script

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
	"modernc.org/quickjs"
)

// loadInfo describes one completed load of a script file.
type loadInfo struct {
	Checksum string
	LoadID   string
	LoadedAt time.Time
}

// loadScript reads the script at path, evaluates it in a fresh VM and
// verifies conformance: the script must define exactly one global function
// named inspect taking one argument. Any violation is a load error, never a
// crash. Every load gets its own VM and load ID, so registering the same
// path twice never aliases previously loaded code.
func loadScript(path string, memoryLimitMB int) (Inspector, loadInfo, error) {
	var info loadInfo

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, info, fmt.Errorf("script not found: %s", path)
	}

	sum := blake3.Sum256(data)
	info.Checksum = hex.EncodeToString(sum[:])
	info.LoadID = uuid.NewString()[:8]
	info.LoadedAt = time.Now().UTC()

	vm, err := quickjs.NewVM()
	if err != nil {
		return nil, info, fmt.Errorf("creating interpreter VM: %w", err)
	}
	if memoryLimitMB > 0 {
		vm.SetMemoryLimit(uintptr(memoryLimitMB) * 1024 * 1024)
	}

	if v, err := vm.EvalValue(fmt.Sprintf("globalThis.__load_id = %q;", info.LoadID), quickjs.EvalGlobal); err != nil {
		vm.Close()
		return nil, info, fmt.Errorf("initializing VM: %w", err)
	} else {
		v.Free()
	}

	v, err := vm.EvalValue(string(data), quickjs.EvalGlobal)
	if err != nil {
		vm.Close()
		return nil, info, fmt.Errorf("evaluating script %s: %w", path, err)
	}
	v.Free()

	typ, err := vm.Eval("typeof globalThis.inspect", quickjs.EvalGlobal)
	if err != nil {
		vm.Close()
		return nil, info, fmt.Errorf("checking script %s: %w", path, err)
	}
	if typ != "function" {
		vm.Close()
		return nil, info, fmt.Errorf("script %s does not define an 'inspect' function", path)
	}

	arity, err := vm.Eval("globalThis.inspect.length", quickjs.EvalGlobal)
	if err != nil {
		vm.Close()
		return nil, info, fmt.Errorf("checking script %s: %w", path, err)
	}
	if n := toInt(arity); n != 1 {
		vm.Close()
		return nil, info, fmt.Errorf("script %s: 'inspect' must take exactly one argument (takes %d)", path, n)
	}

	return &jsInspector{vm: vm}, info, nil
}

// Verify loads the script at path and immediately discards it, reporting
// only whether the load succeeds. Used for preflight checks.
func Verify(path string, memoryLimitMB int) error {
	insp, _, err := loadScript(path, memoryLimitMB)
	if err != nil {
		return err
	}
	insp.Close()
	return nil
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return -1
	}
}
