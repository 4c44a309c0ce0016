// Package repository contains data access layer abstractions.
// Implementations live in subpackages (postgres, memory) inside this directory.
package repository

import "docvault/internal/model"

// Page size bounds applied when a caller does not ask for anything narrower.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ListQuery holds ordering and limit/offset pagination parameters.
type ListQuery struct {
	Sort   model.Sort
	Limit  int
	Offset int
}

// Normalized returns q with a valid sort and a limit in (0, maxLimit]. Zero bounds use the package defaults.
func (q ListQuery) Normalized(defaultLimit, maxLimit int) ListQuery {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}
	if !q.Sort.Field.Valid() {
		q.Sort = model.DefaultSort
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}
