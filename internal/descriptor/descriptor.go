package descriptor

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Field is one named, pure projection of a view.
type Field[V any] struct {
	Name string
	Get  func(V) any
}

// Fn declares a scalar or byte-string field from an accessor,
// typically a method expression such as EventSetgid.GID.
func Fn[V, T any](name string, get func(V) T) Field[V] {
	return Field[V]{
		Name: name,
		Get:  func(v V) any { return get(v) },
	}
}

// Nest declares a field holding a nested view described by d.
func Nest[V, N any](name string, get func(V) N, d *Descriptor[N]) Field[V] {
	return Field[V]{
		Name: name,
		Get:  func(v V) any { return d.Bind(get(v)) },
	}
}

// Descriptor is the value-semantics description of view type V.
type Descriptor[V any] struct {
	name   string
	class  Class
	fields []Field[V]
}

// New declares the descriptor of V. It panics if the declaration is
// inconsistent: duplicate field names, Shareable without Transferable, or a
// class the structure of V does not permit.
func New[V any](name string, class Class, fields ...Field[V]) *Descriptor[V] {
	if class.Shareable && !class.Transferable {
		panic(fmt.Sprintf("descriptor: %s declared shareable but not transferable", name))
	}
	if ceiling := Audit(reflect.TypeFor[V]()); !ceiling.Permits(class) {
		panic(fmt.Sprintf("descriptor: %s declared %s but its structure allows at most %s", name, class, ceiling))
	}

	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if seen[f.Name] {
			panic(fmt.Sprintf("descriptor: %s declares field %q twice", name, f.Name))
		}
		seen[f.Name] = true
	}

	return &Descriptor[V]{
		name:   name,
		class:  class,
		fields: fields,
	}
}

// Name returns the type name used in debug output.
func (d *Descriptor[V]) Name() string {
	return d.name
}

// Class returns the declared classification.
func (d *Descriptor[V]) Class() Class {
	return d.class
}

// Names returns the declared field names in order.
func (d *Descriptor[V]) Names() []string {
	names := make([]string, len(d.fields))
	for i, f := range d.fields {
		names[i] = f.Name
	}
	return names
}

// Format renders v as `Name { field: value, ... }` in declared order.
func (d *Descriptor[V]) Format(v V) string {
	return string(d.AppendFormat(nil, v))
}

// AppendFormat appends the Format rendering of v to dst.
func (d *Descriptor[V]) AppendFormat(dst []byte, v V) []byte {
	dst = append(dst, d.name...)
	if len(d.fields) == 0 {
		return dst
	}
	dst = append(dst, " { "...)
	for i, f := range d.fields {
		if i > 0 {
			dst = append(dst, ", "...)
		}
		dst = append(dst, f.Name...)
		dst = append(dst, ": "...)
		dst = appendValue(dst, f.Get(v))
	}
	return append(dst, " }"...)
}

// Equal compares a and b field by field in declared order.
func (d *Descriptor[V]) Equal(a, b V) bool {
	for _, f := range d.fields {
		if !equalValue(f.Get(a), f.Get(b)) {
			return false
		}
	}
	return true
}

// Hash returns the 64-bit hash of v's declared fields.
// The value is stable across processes and builds.
func (d *Descriptor[V]) Hash(v V) uint64 {
	h := xxhash.New()
	d.WriteHash(h, v)
	return h.Sum64()
}

// WriteHash feeds v's declared fields, in order, into h.
func (d *Descriptor[V]) WriteHash(h *xxhash.Digest, v V) {
	var scratch [9]byte
	for _, f := range d.fields {
		writeValue(h, scratch[:0], f.Get(v))
	}
}

// Map copies v's projections into a map that does not alias the message
// buffer. Byte strings become strings, nested views become maps and
// enumerations become their names.
func (d *Descriptor[V]) Map(v V) map[string]any {
	m := make(map[string]any, len(d.fields))
	for _, f := range d.fields {
		m[f.Name] = ownedValue(f.Get(v))
	}
	return m
}

// Bind pairs v with d so it can be used as the value of another view's field.
func (d *Descriptor[V]) Bind(v V) Nested {
	return bound[V]{d: d, v: v}
}

// Nested is a view bound to its descriptor, as returned by Nest accessors.
type Nested interface {
	fmt.Stringer
	appendDebug(dst []byte) []byte
	equal(other Nested) bool
	writeHash(h *xxhash.Digest)
	toMap() map[string]any
}

type bound[V any] struct {
	d *Descriptor[V]
	v V
}

func (b bound[V]) String() string                { return b.d.Format(b.v) }
func (b bound[V]) appendDebug(dst []byte) []byte { return b.d.AppendFormat(dst, b.v) }
func (b bound[V]) writeHash(h *xxhash.Digest)    { b.d.WriteHash(h, b.v) }
func (b bound[V]) toMap() map[string]any         { return b.d.Map(b.v) }

func (b bound[V]) equal(other Nested) bool {
	o, ok := other.(bound[V])
	return ok && o.d == b.d && b.d.Equal(b.v, o.v)
}

// Hash tags keep values of different shapes from colliding.
const (
	tagBytes  = 's'
	tagBool   = 'b'
	tagInt    = 'i'
	tagUint   = 'u'
	tagTime   = 't'
	tagNested = 'n'
	tagNil    = 'z'
)

func appendValue(dst []byte, v any) []byte {
	switch x := v.(type) {
	case nil:
		return append(dst, "None"...)
	case []byte:
		return strconv.AppendQuote(dst, string(x))
	case string:
		return strconv.AppendQuote(dst, x)
	case bool:
		return strconv.AppendBool(dst, x)
	case time.Time:
		return x.UTC().AppendFormat(dst, time.RFC3339Nano)
	case Nested:
		return x.appendDebug(dst)
	case fmt.Stringer:
		return append(dst, x.String()...)
	default:
		return fmt.Append(dst, v)
	}
}

func equalValue(a, b any) bool {
	switch x := a.(type) {
	case []byte:
		y, ok := b.([]byte)
		return ok && bytes.Equal(x, y)
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	case Nested:
		y, ok := b.(Nested)
		return ok && x.equal(y)
	default:
		return a == b
	}
}

func writeValue(h *xxhash.Digest, scratch []byte, v any) {
	switch x := v.(type) {
	case nil:
		_, _ = h.Write(append(scratch, tagNil))
	case []byte:
		writeBytes(h, scratch, x)
	case string:
		writeBytes(h, scratch, []byte(x))
	case bool:
		b := byte(0)
		if x {
			b = 1
		}
		_, _ = h.Write(append(scratch, tagBool, b))
	case time.Time:
		_, _ = h.Write(binary.LittleEndian.AppendUint64(append(scratch, tagTime), uint64(x.UnixNano())))
	case Nested:
		_, _ = h.Write(append(scratch, tagNested))
		x.writeHash(h)
	case uint32:
		writeUint(h, scratch, uint64(x))
	case int32:
		writeInt(h, scratch, int64(x))
	case uint64:
		writeUint(h, scratch, x)
	case int64:
		writeInt(h, scratch, x)
	default:
		rv := reflect.ValueOf(v)
		switch {
		case rv.CanInt():
			writeInt(h, scratch, rv.Int())
		case rv.CanUint():
			writeUint(h, scratch, rv.Uint())
		default:
			panic(fmt.Sprintf("descriptor: unsupported field type %T", v))
		}
	}
}

func writeBytes(h *xxhash.Digest, scratch []byte, b []byte) {
	_, _ = h.Write(binary.LittleEndian.AppendUint64(append(scratch, tagBytes), uint64(len(b))))
	_, _ = h.Write(b)
}

func writeInt(h *xxhash.Digest, scratch []byte, v int64) {
	//nolint:gosec // Two's complement reinterpretation is the intent
	_, _ = h.Write(binary.LittleEndian.AppendUint64(append(scratch, tagInt), uint64(v)))
}

func writeUint(h *xxhash.Digest, scratch []byte, v uint64) {
	_, _ = h.Write(binary.LittleEndian.AppendUint64(append(scratch, tagUint), v))
}

func ownedValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return x
	case Nested:
		return x.toMap()
	case fmt.Stringer:
		return x.String()
	default:
		return v
	}
}
