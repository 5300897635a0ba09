// Package pagination builds relay-style connections over descending,
// id-keyed collections. Callers fetch one row beyond the requested
// limit so that hasNextPage stays accurate when the limit lands
// exactly on the end of the collection.
package pagination

import (
	"confessly/internal/cursor"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultLimit = 10
	MaxLimit     = 50
)

// PageInfo describes the position of a page within its collection.
type PageInfo struct {
	EndCursor   *string `json:"endCursor"`
	HasNextPage bool    `json:"hasNextPage"`
}

// Connection is one page of a collection plus its total size. The
// total reflects the whole cursor-free predicate, not the remainder,
// and is a snapshot with no isolation guarantee against writers.
type Connection[T any] struct {
	Edges      []T      `json:"edges"`
	PageInfo   PageInfo `json:"pageInfo"`
	TotalCount int64    `json:"totalCount"`
}

// Build trims an over-fetched page down to limit and computes its
// PageInfo. items must have been fetched with limit+1 in descending
// key order.
func Build[T any](items []T, limit int, totalCount int64, key func(T) primitive.ObjectID) Connection[T] {
	hasNext := len(items) > limit
	if hasNext {
		items = items[:limit]
	}

	conn := Connection[T]{
		Edges:      items,
		PageInfo:   PageInfo{HasNextPage: hasNext},
		TotalCount: totalCount,
	}

	if len(items) > 0 {
		end := cursor.Encode(key(items[len(items)-1]))
		conn.PageInfo.EndCursor = &end
	}

	return conn
}

// ClampLimit normalizes a caller-supplied page size.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
