package registry

import (
	"strconv"

	"github.com/confkit/confkit/pkg/config"
)

// PropIgnoreDuplicatedInterface is the property key controlling whether
// conflicting interface-bound registrations are tolerated (warn and keep
// the first entry) instead of failing.
const PropIgnoreDuplicatedInterface = "confkit.config.ignore-duplicated-interface"

// Initialize reads the registry's policy settings from the property
// source. Only the first call performs the lookup; every later or
// concurrent call returns immediately without waiting for the winner to
// finish. Clear does not re-arm the gate.
func (r *Registry) Initialize(src config.PropertySource) {
	if !r.inited.CompareAndSwap(false, true) {
		return
	}

	ignore := false
	if raw, ok := src.Property(PropIgnoreDuplicatedInterface); ok {
		// Unparseable values read as false, matching strconv's zero result.
		ignore, _ = strconv.ParseBool(raw)
	}

	r.mu.Lock()
	r.ignoreDuplicatedInterface = ignore
	r.mu.Unlock()

	r.log.Info().Bool("ignoreDuplicatedInterface", ignore).Msg("config settings applied")
}

// Initialized reports whether Initialize has already claimed the gate.
func (r *Registry) Initialized() bool {
	return r.inited.Load()
}
