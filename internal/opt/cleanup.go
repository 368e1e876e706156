package opt

import (
	"lazyjit/internal/ir"
)

// Cleanup removes blocks no path from the entry reaches
type Cleanup struct{}

func (c *Cleanup) Name() string { return "cleanup" }

func (c *Cleanup) Description() string {
	return "Removes unreachable basic blocks"
}

func (c *Cleanup) Apply(fn *ir.Function) bool {
	removed := ir.PruneUnreachable(fn)
	if removed > 0 {
		log.Debug("unreachable blocks removed", "function", fn.Name, "count", removed)
	}
	return removed > 0
}
