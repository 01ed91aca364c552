package bpfloader

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_MissingPin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "es_events")

	_, err := Open(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading pinned map")
	assert.Contains(t, err.Error(), path)
}

func TestClose_Empty(t *testing.T) {
	l := &Loader{}
	assert.NoError(t, l.Close())
}
