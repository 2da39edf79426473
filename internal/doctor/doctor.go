// Package doctor validates dyright configuration and inspection scripts
// without starting the service.
package doctor

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Atiyakh/dyright/internal/config"
	"github.com/Atiyakh/dyright/internal/script"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor validates a loaded configuration and the scripts it points at.
type Doctor struct {
	cfg *config.Config

	// verifyScript is swapped out in tests.
	verifyScript func(path string, memoryLimitMB int) error
}

// New creates a Doctor for a loaded config.
func New(cfg *config.Config) *Doctor {
	return &Doctor{cfg: cfg, verifyScript: script.Verify}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	d.validateListen(r)
	d.validateExecute(r)
	d.validateScripts(r)
	d.warnMissingAuth(r)
	d.warnShortTimeout(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

// validateListen checks the listen address is well formed and local.
func (d *Doctor) validateListen(r *Result) {
	host, _, err := net.SplitHostPort(d.cfg.Listen)
	if err != nil {
		d.addError(r, "listen", "listen", fmt.Sprintf("invalid listen address %q: %v", d.cfg.Listen, err))
		return
	}
	if ip := net.ParseIP(host); ip != nil && !ip.IsLoopback() {
		d.addWarning(r, "listen", "listen",
			fmt.Sprintf("listen host %q is not a loopback address; the service is meant to be local", host))
	}
}

// validateExecute checks worker pool and timeout settings.
func (d *Doctor) validateExecute(r *Result) {
	if d.cfg.Execute.Workers <= 0 {
		d.addError(r, "execute", "execute.workers", "workers must be positive")
	}
	if d.cfg.Execute.QueueDepth < 0 {
		d.addError(r, "execute", "execute.queue_depth", "queue_depth must not be negative")
	}
	if d.cfg.Execute.DefaultTimeout <= 0 {
		d.addError(r, "execute", "execute.default_timeout", "default_timeout must be positive")
	}
	if d.cfg.Execute.DefaultRAMMB < 0 {
		d.addError(r, "execute", "execute.default_ram_mb", "default_ram_mb must not be negative")
	}
	if d.cfg.Scripts.VMMemoryLimitMB < 0 {
		d.addError(r, "scripts", "scripts.vm_memory_limit_mb", "vm_memory_limit_mb must not be negative")
	}
}

// validateScripts loads every .js file in the scripts directory and reports
// the ones that fail to load.
func (d *Doctor) validateScripts(r *Result) {
	dir := d.cfg.Scripts.Dir
	if dir == "" {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		d.addWarning(r, "scripts", "scripts.dir",
			fmt.Sprintf("scripts directory %q not readable: %v", dir, err))
		return
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".js") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		d.addWarning(r, "scripts", "scripts.dir",
			fmt.Sprintf("scripts directory %q contains no .js files", dir))
		return
	}

	for _, name := range names {
		if err := d.verifyScript(filepath.Join(dir, name), d.cfg.Scripts.VMMemoryLimitMB); err != nil {
			d.addError(r, "scripts", name, fmt.Sprintf("script load error: %v", err))
		}
	}
}

// warnMissingAuth flags an unguarded control surface.
func (d *Doctor) warnMissingAuth(r *Result) {
	if d.cfg.API.APIKey == "" {
		d.addWarning(r, "api", "api.api_key",
			"no API key configured; register, reload and shutdown are open to any local process")
	}
}

// warnShortTimeout flags an inspection timeout too small to do useful work.
func (d *Doctor) warnShortTimeout(r *Result) {
	if d.cfg.Execute.DefaultTimeout > 0 && d.cfg.Execute.DefaultTimeout < 100*time.Millisecond {
		d.addWarning(r, "execute", "execute.default_timeout",
			fmt.Sprintf("default_timeout %s is very short (< 100ms)", d.cfg.Execute.DefaultTimeout))
	}
}

// FormatHuman returns a human-readable validation report.
func FormatHuman(r *Result) string {
	var b strings.Builder

	switch {
	case r.Valid && len(r.Warnings) == 0:
		b.WriteString("Configuration valid.\n")
		return b.String()
	case r.Valid:
		fmt.Fprintf(&b, "Configuration valid (%d warning(s))\n", len(r.Warnings))
	default:
		fmt.Fprintf(&b, "Configuration invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	for _, e := range r.Errors {
		if e.Field != "" {
			fmt.Fprintf(&b, "  ERROR [%s] %s: %s\n", e.Category, e.Field, e.Message)
		} else {
			fmt.Fprintf(&b, "  ERROR [%s] %s\n", e.Category, e.Message)
		}
	}
	for _, w := range r.Warnings {
		if w.Field != "" {
			fmt.Fprintf(&b, "  WARN  [%s] %s: %s\n", w.Category, w.Field, w.Message)
		} else {
			fmt.Fprintf(&b, "  WARN  [%s] %s\n", w.Category, w.Message)
		}
	}

	return b.String()
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
