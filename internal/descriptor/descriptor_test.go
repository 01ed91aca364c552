package descriptor

import (
	"reflect"
	"sync"
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type label struct {
	text []byte
	pad  [4]byte
}

func (l label) Text() []byte { return l.text }

type point struct {
	x, y  uint32
	label label
	pad   [8]byte
}

func (p point) X() uint32    { return p.x }
func (p point) Y() uint32    { return p.y }
func (p point) Label() label { return p.label }
func (p point) Origin() bool { return p.x == 0 && p.y == 0 }

var labelDesc = New("Label", ClassShareable,
	Fn("text", label.Text),
)

var pointDesc = New("Point", ClassShareable,
	Fn("x", point.X),
	Fn("y", point.Y),
	Nest("label", point.Label, labelDesc),
)

func newPoint(x, y uint32, text string) point {
	return point{x: x, y: y, label: label{text: []byte(text)}}
}

func TestFormat_DeclaredOrder(t *testing.T) {
	p := newPoint(3, 4, "corner")
	assert.Equal(t, `Point { x: 3, y: 4, label: Label { text: "corner" } }`, pointDesc.Format(p))
}

func TestFormat_NoFields(t *testing.T) {
	d := New[point]("Empty", ClassShareable)
	assert.Equal(t, "Empty", d.Format(point{}))
}

func TestFormat_Scalars(t *testing.T) {
	when := time.Unix(1_700_000_000, 5).UTC()
	d := New("Scalars", ClassShareable,
		Fn("origin", point.Origin),
		Fn("when", func(point) time.Time { return when }),
		Fn("nothing", func(point) any { return nil }),
	)
	assert.Equal(t,
		`Scalars { origin: true, when: 2023-11-14T22:13:20.000000005Z, nothing: None }`,
		d.Format(point{}))
}

func TestEqual_IgnoresUndeclaredBytes(t *testing.T) {
	a := newPoint(1, 2, "same")
	b := newPoint(1, 2, "same")
	b.pad[3] = 0xff
	b.label.pad[0] = 0x7f

	assert.True(t, pointDesc.Equal(a, b))
	assert.Equal(t, pointDesc.Hash(a), pointDesc.Hash(b))
	assert.Equal(t, pointDesc.Format(a), pointDesc.Format(b))
}

func TestEqual_NestedFieldDiffers(t *testing.T) {
	a := newPoint(1, 2, "left")
	b := newPoint(1, 2, "right")

	assert.False(t, pointDesc.Equal(a, b))
	assert.NotEqual(t, pointDesc.Hash(a), pointDesc.Hash(b))
}

func TestEqual_ShortCircuits(t *testing.T) {
	calls := 0
	d := New("Counted", ClassShareable,
		Fn("x", point.X),
		Fn("y", func(p point) uint32 {
			calls++
			return p.y
		}),
	)

	assert.False(t, d.Equal(newPoint(1, 0, ""), newPoint(2, 0, "")))
	assert.Zero(t, calls, "comparison must stop at the first mismatching field")
}

func TestHash_Deterministic(t *testing.T) {
	p := newPoint(9, 8, "x")
	first := pointDesc.Hash(p)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, pointDesc.Hash(p))
	}
}

func TestHash_DeclaredOrderSensitive(t *testing.T) {
	swapped := New("Point", ClassShareable,
		Fn("y", point.Y),
		Fn("x", point.X),
		Nest("label", point.Label, labelDesc),
	)

	p := newPoint(3, 4, "corner")
	assert.NotEqual(t, pointDesc.Hash(p), swapped.Hash(p))
}

func TestHash_ByteStringBoundaries(t *testing.T) {
	d := New("Pair", ClassShareable,
		Fn("a", func(p point) []byte { return p.label.text[:p.x] }),
		Fn("b", func(p point) []byte { return p.label.text[p.x:] }),
	)

	// "ab"+"c" and "a"+"bc" must not collide.
	p1 := point{x: 2, label: label{text: []byte("abc")}}
	p2 := point{x: 1, label: label{text: []byte("abc")}}
	assert.NotEqual(t, d.Hash(p1), d.Hash(p2))
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"x", "y", "label"}, pointDesc.Names())
	assert.Equal(t, "Point", pointDesc.Name())
	assert.Equal(t, ClassShareable, pointDesc.Class())
}

func TestMap_OwnsItsData(t *testing.T) {
	p := newPoint(1, 2, "alias")
	m := pointDesc.Map(p)
	p.label.text[0] = 'X'

	assert.Equal(t, map[string]any{
		"x":     uint32(1),
		"y":     uint32(2),
		"label": map[string]any{"text": "alias"},
	}, m)
}

func TestNested_DifferentDescriptorsNeverEqual(t *testing.T) {
	other := New("Label", ClassShareable, Fn("text", label.Text))
	l := label{text: []byte("a")}

	assert.False(t, labelDesc.Bind(l).equal(other.Bind(l)))
	assert.True(t, labelDesc.Bind(l).equal(labelDesc.Bind(l)))
	assert.Equal(t, `Label { text: "a" }`, labelDesc.Bind(l).String())
}

func TestNew_RejectsDuplicateFields(t *testing.T) {
	assert.Panics(t, func() {
		New("Dup", ClassShareable, Fn("x", point.X), Fn("x", point.Y))
	})
}

func TestNew_RejectsShareableWithoutTransferable(t *testing.T) {
	assert.Panics(t, func() {
		New[point]("Odd", Class{Shareable: true})
	})
}

func TestUnsupportedFieldTypePanicsOnHash(t *testing.T) {
	d := New("Bad", ClassShareable, Fn("f", func(point) float64 { return 1.5 }))
	assert.Panics(t, func() { d.Hash(point{}) })
}

type runLoopHandle struct{ id uintptr }

func (runLoopHandle) ThreadAffine() {}

type affineView struct {
	buf    []byte
	handle runLoopHandle
}

type cachingView struct {
	buf   []byte
	cache map[string]string
}

type lockedView struct {
	mu  sync.Mutex
	buf []byte
}

type opaqueView struct {
	decode func([]byte) string
}

type pointerView struct {
	p unsafe.Pointer
}

type recursive struct {
	next *recursive
	buf  []byte
}

func TestAudit(t *testing.T) {
	tests := []struct {
		name string
		typ  reflect.Type
		want Class
	}{
		{"plain view", reflect.TypeFor[point](), ClassShareable},
		{"thread-affine handle", reflect.TypeFor[affineView](), ClassConfined},
		{"thread-affine behind pointer", reflect.TypeFor[*affineView](), ClassConfined},
		{"interior map cache", reflect.TypeFor[cachingView](), ClassTransferable},
		{"channel", reflect.TypeFor[chan int](), ClassTransferable},
		{"mutex guarded", reflect.TypeFor[lockedView](), ClassShareable},
		{"opaque func", reflect.TypeFor[opaqueView](), ClassConfined},
		{"unsafe pointer", reflect.TypeFor[pointerView](), ClassConfined},
		{"self referential", reflect.TypeFor[recursive](), ClassShareable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Audit(tt.typ))
		})
	}
}

func TestNew_RejectsThreadAffineDeclaredTransferable(t *testing.T) {
	defer func() {
		r := recover()
		require.NotNil(t, r, "a view holding a thread-affine handle must not be accepted as transferable")
		assert.Contains(t, r, "allows at most confined")
	}()
	New[affineView]("AffineView", ClassTransferable)
}

func TestNew_AcceptsThreadAffineDeclaredConfined(t *testing.T) {
	d := New[affineView]("AffineView", ClassConfined)
	assert.Equal(t, ClassConfined, d.Class())
}

func TestNew_RejectsMutableCacheDeclaredShareable(t *testing.T) {
	assert.Panics(t, func() {
		New[cachingView]("CachingView", ClassShareable)
	})
	assert.NotPanics(t, func() {
		New[cachingView]("CachingView", ClassTransferable)
	})
}

func TestClass_Permits(t *testing.T) {
	assert.True(t, ClassShareable.Permits(ClassShareable))
	assert.True(t, ClassShareable.Permits(ClassConfined))
	assert.True(t, ClassTransferable.Permits(ClassTransferable))
	assert.False(t, ClassTransferable.Permits(ClassShareable))
	assert.False(t, ClassConfined.Permits(ClassTransferable))
}

func TestClass_String(t *testing.T) {
	assert.Equal(t, "transferable+shareable", ClassShareable.String())
	assert.Equal(t, "transferable", ClassTransferable.String())
	assert.Equal(t, "confined", ClassConfined.String())
}
