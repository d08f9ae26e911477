package models

import (
	"errors"

	"github.com/google/uuid"
)

// ErrRowNotFound is returned when a row id no longer exists in its list.
var ErrRowNotFound = errors.New("row not found")

// RowID identifies a row for its whole lifetime, independent of position.
type RowID string

// Row pairs an editable value with its stable id.
type Row[T any] struct {
	ID    RowID
	Value T
}

// Rows is an ordered list of editable rows. Every method returns a new
// slice and never mutates the receiver, so a snapshot taken before an edit
// stays valid after it.
type Rows[T any] []Row[T]

// NewRows builds a list with one fresh row per value.
func NewRows[T any](values ...T) Rows[T] {
	out := make(Rows[T], 0, len(values))
	for _, v := range values {
		out = append(out, Row[T]{ID: newRowID(), Value: v})
	}
	return out
}

func newRowID() RowID {
	return RowID(uuid.NewString())
}

// Add appends a row holding v.
func (r Rows[T]) Add(v T) Rows[T] {
	out := make(Rows[T], len(r), len(r)+1)
	copy(out, r)
	return append(out, Row[T]{ID: newRowID(), Value: v})
}

// Update replaces the value of row id with fn applied to it.
func (r Rows[T]) Update(id RowID, fn func(T) (T, error)) (Rows[T], error) {
	idx := r.Index(id)
	if idx < 0 {
		return r, ErrRowNotFound
	}
	v, err := fn(r[idx].Value)
	if err != nil {
		return r, err
	}
	out := make(Rows[T], len(r))
	copy(out, r)
	out[idx] = Row[T]{ID: id, Value: v}
	return out, nil
}

// Remove drops row id. Removing the last remaining row, or an unknown id, is a no-op.
func (r Rows[T]) Remove(id RowID) Rows[T] {
	idx := r.Index(id)
	if idx < 0 || len(r) <= 1 {
		return r
	}
	out := make(Rows[T], 0, len(r)-1)
	out = append(out, r[:idx]...)
	return append(out, r[idx+1:]...)
}

// Index returns the position of row id, or -1.
func (r Rows[T]) Index(id RowID) int {
	for i, row := range r {
		if row.ID == id {
			return i
		}
	}
	return -1
}

// Get returns the value of row id.
func (r Rows[T]) Get(id RowID) (T, bool) {
	if idx := r.Index(id); idx >= 0 {
		return r[idx].Value, true
	}
	var zero T
	return zero, false
}

// Values returns the row values in order.
func (r Rows[T]) Values() []T {
	out := make([]T, len(r))
	for i, row := range r {
		out[i] = row.Value
	}
	return out
}
