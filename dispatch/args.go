package dispatch

import (
	"fmt"
)

type absent struct{}

func (absent) String() string { return "<absent>" }

// Absent is the value of an optional argument the host did not supply.
var Absent any = absent{}

// Args holds the decoded arguments of one call, one slot per declared
// parameter. Slots past the supplied count hold Absent.
type Args struct {
	values []any
}

// NewArgs builds Args from values; used by tests and custom dispatch.
func NewArgs(values ...any) Args {
	return Args{values: values}
}

// Len returns the number of declared parameters.
func (a Args) Len() int {
	return len(a.values)
}

// Present reports whether the argument at i was supplied.
func (a Args) Present(i int) bool {
	return i >= 0 && i < len(a.values) && a.values[i] != Absent
}

// Lookup returns the argument at i and whether it was supplied.
func (a Args) Lookup(i int) (any, bool) {
	if !a.Present(i) {
		return nil, false
	}
	return a.values[i], true
}

// Value returns the argument at i, or Absent.
func (a Args) Value(i int) any {
	if i < 0 || i >= len(a.values) {
		return Absent
	}
	return a.values[i]
}

// Values returns all slots, with Absent for omitted optionals.
func (a Args) Values() []any {
	return a.values
}

// Get returns the argument at i as T. An absent argument yields the zero
// value and false; a value of another type panics, which the dispatcher
// reports as an internal fault.
func Get[T any](a Args, i int) (T, bool) {
	var zero T
	v, ok := a.Lookup(i)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		panic(fmt.Sprintf("argument %d is %T, not %T", i, v, zero))
	}
	return t, true
}

func get[T any](a Args, i int) T {
	v, _ := Get[T](a, i)
	return v
}

func (a Args) Bool(i int) bool       { return get[bool](a, i) }
func (a Args) Int8(i int) int8       { return get[int8](a, i) }
func (a Args) Int16(i int) int16     { return get[int16](a, i) }
func (a Args) Int32(i int) int32     { return get[int32](a, i) }
func (a Args) Int64(i int) int64     { return get[int64](a, i) }
func (a Args) Uint8(i int) uint8     { return get[uint8](a, i) }
func (a Args) Uint16(i int) uint16   { return get[uint16](a, i) }
func (a Args) Uint32(i int) uint32   { return get[uint32](a, i) }
func (a Args) Uint64(i int) uint64   { return get[uint64](a, i) }
func (a Args) Float32(i int) float32 { return get[float32](a, i) }
func (a Args) Float64(i int) float64 { return get[float64](a, i) }
func (a Args) Char(i int) rune       { return get[rune](a, i) }
func (a Args) Text(i int) string     { return get[string](a, i) }

// Record returns a record argument in canonical form.
func (a Args) Record(i int) map[string]any { return get[map[string]any](a, i) }

// List returns a list or tuple argument in canonical form.
func (a Args) List(i int) []any { return get[[]any](a, i) }
