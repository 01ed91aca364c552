package scope

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScope_RefValidOnlyInsideWindow(t *testing.T) {
	s := New()
	assert.False(t, s.Active())

	buf := []byte{1, 2, 3}
	ref := s.Enter(buf)
	assert.True(t, s.Active())
	assert.True(t, ref.Valid())
	assert.Equal(t, buf, ref.Bytes())

	s.End()
	assert.False(t, s.Active())
	assert.False(t, ref.Valid())
}

func TestScope_UseAfterEndPanics(t *testing.T) {
	s := New()
	ref := s.Enter([]byte("payload"))
	s.End()

	defer func() {
		r := recover()
		require.NotNil(t, r)
		v, ok := r.(*Violation)
		require.True(t, ok, "panic value should be *Violation, got %T", r)
		assert.Equal(t, ref.Generation(), v.Generation)
		assert.Equal(t, ref.Generation()+1, v.Current)
		assert.Contains(t, v.Error(), "after its delivery scope ended")
	}()
	_ = ref.Bytes()
}

func TestScope_StaleRefAfterReenter(t *testing.T) {
	s := New()
	first := s.Enter([]byte("first"))
	s.End()

	second := s.Enter([]byte("second"))
	defer s.End()

	assert.False(t, first.Valid(), "a ref from a previous delivery must not validate against a newer one")
	assert.True(t, second.Valid())
	assert.NotEqual(t, first.Generation(), second.Generation())
}

func TestScope_DoubleEnterPanics(t *testing.T) {
	s := New()
	s.Enter(nil)
	assert.Panics(t, func() { s.Enter(nil) })
}

func TestScope_EndWhileClosedPanics(t *testing.T) {
	assert.Panics(t, func() { New().End() })
}

func TestScope_Do(t *testing.T) {
	s := New()
	var kept Ref
	sentinel := errors.New("handler failed")

	err := s.Do([]byte("x"), func(ref Ref) error {
		kept = ref
		assert.True(t, ref.Valid())
		return sentinel
	})

	assert.ErrorIs(t, err, sentinel)
	assert.False(t, s.Active())
	assert.False(t, kept.Valid())
}

func TestScope_DoEndsOnPanic(t *testing.T) {
	s := New()
	assert.Panics(t, func() {
		_ = s.Do(nil, func(Ref) error { panic("boom") })
	})
	assert.False(t, s.Active())
}

func TestRef_ZeroValue(t *testing.T) {
	var r Ref
	assert.False(t, r.Valid())
	assert.Panics(t, func() { r.Check() })
}

func TestRef_ConcurrentReaders(t *testing.T) {
	s := New()
	ref := s.Enter([]byte("shared"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, "shared", string(ref.Bytes()))
			}
		}()
	}
	wg.Wait()
	s.End()
}
