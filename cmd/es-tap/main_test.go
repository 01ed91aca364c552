package main

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrzor/endpoint-sec/internal/config"
)

func TestPrintKinds(t *testing.T) {
	var buf bytes.Buffer
	printKinds(&buf, false)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 10)
	assert.Equal(t, "exit", lines[0])
	assert.Contains(t, lines, "setgid")
	assert.Contains(t, lines, "lw_session_unlock")
}

func TestPrintKinds_Verbose(t *testing.T) {
	var buf bytes.Buffer
	printKinds(&buf, true)

	var setgid string
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.HasPrefix(line, "setgid ") {
			setgid = line
		}
	}
	require.NotEmpty(t, setgid)
	assert.Contains(t, setgid, "EventSetgid")
	assert.Contains(t, setgid, "transferable+shareable")
	assert.True(t, strings.HasSuffix(setgid, " gid"))
}

func TestLoadConfig_File(t *testing.T) {
	t.Setenv("ES_TAP_RINGBUF", "/sys/fs/bpf/env_path")
	path := t.TempDir() + "/es-tap.yaml"
	require.NoError(t, os.WriteFile(path, []byte("ringbuf: /sys/fs/bpf/file_path\nkinds: [setuid]\n"), 0o600))

	cfg, err := loadConfig(path, config.Flags{Output: "otel"})
	require.NoError(t, err)
	assert.Equal(t, "/sys/fs/bpf/file_path", cfg.RingBufPath)
	assert.Equal(t, "otel", cfg.Output)
	require.Len(t, cfg.Kinds, 1)
	assert.Equal(t, "setuid", cfg.Kinds[0].String())
}
