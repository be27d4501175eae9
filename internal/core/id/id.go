// Package id provides the two identifier families used by the catalog.
//
// External ids (organizations, data sources, datasets, slices, indicators,
// observations, topics) are opaque provider-defined strings and are never
// generated here. Surrogate ids (dimensions, units, licenses, computations,
// values, indicator groups, relationships) are positive integers handed out
// by a Sequence.
package id

import (
	"strconv"
	"sync/atomic"

	"landportal/internal/core/apperror"
)

// MaxExternalLen mirrors the widest external key column.
const MaxExternalLen = 255

// Surrogate is an internally generated integer key.
type Surrogate = int64

// ValidateExternal checks an externally sourced id.
func ValidateExternal(entity, value string) error {
	if value == "" {
		return apperror.NewValidation(entity+" id is required").
			WithDetail("field", "id")
	}
	if len(value) > MaxExternalLen {
		return apperror.NewValidation(entity+" id is too long").
			WithDetail("field", "id").
			WithDetail("max", MaxExternalLen)
	}
	return nil
}

// Format renders a surrogate id as its storage/display key.
func Format(s Surrogate) string {
	return strconv.FormatInt(s, 10)
}

// Parse converts a surrogate key back to its integer form.
func Parse(key string) (Surrogate, error) {
	s, err := strconv.ParseInt(key, 10, 64)
	if err != nil || s <= 0 {
		return 0, apperror.NewValidation("invalid surrogate id").
			WithDetail("value", key)
	}
	return s, nil
}

// Sequence hands out increasing surrogate ids. Safe for concurrent use.
type Sequence struct {
	last atomic.Int64
}

// Next returns the next unused id.
func (s *Sequence) Next() Surrogate {
	return s.last.Add(1)
}

// Last returns the highest id handed out or observed.
func (s *Sequence) Last() Surrogate {
	return s.last.Load()
}

// Observe records an externally assigned id (e.g. loaded from storage)
// so that Next never hands it out again.
func (s *Sequence) Observe(v Surrogate) {
	for {
		cur := s.last.Load()
		if v <= cur || s.last.CompareAndSwap(cur, v) {
			return
		}
	}
}

// Assign returns v when it is already set, otherwise a fresh id.
func (s *Sequence) Assign(v Surrogate) Surrogate {
	if v > 0 {
		s.Observe(v)
		return v
	}
	return s.Next()
}
