package opt

import (
	"slices"
	"strings"

	"tlog.app/go/errors"

	ierrors "lazyjit/internal/errors"
)

// Factory creates a pass configured with opts
type Factory func(opts Options) Pass

var registry = map[string]Factory{
	"assumptions":   func(o Options) Pass { return &OptimizeAssumptions{Options: o} },
	"constprop":     func(o Options) Pass { return &ConstantPropagation{Options: o} },
	"force-elision": func(o Options) Pass { return &ForceElision{Options: o} },
	"cleanup":       func(o Options) Pass { return &Cleanup{} },
}

// Lookup creates the pass registered under name
func Lookup(name string, opts Options) (Pass, error) {
	f, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, errors.New("%s: unknown pass %q, known passes: %s",
			ierrors.ErrorBadConfig, name, strings.Join(Names(), ", "))
	}
	return f(opts), nil
}

// Names lists the registered passes in sorted order
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
