package registry

import (
	"fmt"

	"github.com/confkit/confkit/pkg/config"
	cerrors "github.com/confkit/confkit/pkg/errors"
)

// findDuplicate decides whether cfg collides with an already-registered
// entry. A nil result with a nil error means cfg may be inserted.
// Callers must hold r.mu.
//
// Service entries are checked against the unique-key side index.
// Reference entries deliberately are not: they dedup by id and field
// equality only, like the generic categories.
func (r *Registry) findDuplicate(cfg config.Config) (config.Config, error) {
	if cfg.Tag() == config.CategoryService {
		return r.findDuplicateService(cfg.(config.UniqueKeyed))
	}
	return r.findDuplicateGeneric(cfg), nil
}

// findDuplicateGeneric reports a collision when an entry with the same
// id, the same instance, or field-equal content already exists.
func (r *Registry) findDuplicateGeneric(cfg config.Config) config.Config {
	b, ok := r.buckets[cfg.Tag()]
	if !ok {
		return nil
	}
	if id := cfg.ID(); id != "" {
		if prev, ok := b.byID[id]; ok {
			return prev
		}
	}
	for _, id := range b.order {
		prev := b.byID[id]
		if prev == cfg || prev.Equal(cfg) {
			return prev
		}
	}
	return nil
}

// findDuplicateService checks the unique-key side index. The first
// registration for a key wins; a later field-equal entry is silently
// folded into it, a later non-equal entry is a conflict.
func (r *Registry) findDuplicateService(cfg config.UniqueKeyed) (config.Config, error) {
	key := cfg.UniqueKey()
	prev, ok := r.serviceIndex[key]
	if !ok {
		return nil, nil
	}
	if prev == cfg {
		// Idempotent re-registration of the same instance.
		return prev, nil
	}
	if prev.Equal(cfg) {
		r.warnOnce(cfg, fmt.Sprintf("ignoring duplicated and equal config: %v", cfg))
		return prev, nil
	}

	msg := fmt.Sprintf(
		"found multiple %s configs with unique key [%s], previous: %v, later: %v; "+
			"only one instance per (group, interface, version) triple is allowed, "+
			"use a different group or version if multiple instances are required",
		cfg.Tag(), key, prev, cfg)
	r.warnOnce(cfg, msg)

	if !r.ignoreDuplicatedInterface {
		return nil, cerrors.New(cerrors.ErrConfigConflict, msg).
			WithDetail("category", cfg.Tag().String()).
			WithDetail("key", key).
			WithDetail("previous", fmt.Sprint(prev)).
			WithDetail("later", fmt.Sprint(cfg))
	}
	return prev, nil
}

// warnOnce logs msg at warn level at most once per distinct new instance.
func (r *Registry) warnOnce(cfg config.Config, msg string) {
	if _, seen := r.warned[cfg]; seen {
		return
	}
	r.warned[cfg] = struct{}{}
	r.log.Warn().Str("category", cfg.Tag().String()).Msg(msg)
}
