package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrzor/endpoint-sec/internal/event"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ES_TAP_RINGBUF", "ES_TAP_KINDS", "ES_TAP_FILTER", "ES_TAP_TRACE_ID",
		"ES_TAP_ATTRIBUTES", "ES_TAP_DEDUP_SIZE", "ES_TAP_RULES_DIR", "ES_TAP_OUTPUT",
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "es-tap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func intPtr(v int) *int { return &v }

func TestParseEnvConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := ParseEnvConfig()
	require.NoError(t, err)
	assert.Equal(t, "/sys/fs/bpf/es_events", cfg.RingBuf)
	assert.Zero(t, cfg.DedupSize, "dedup is opt-in")
	assert.Equal(t, OutputStdout, cfg.Output)
	assert.Empty(t, cfg.Kinds)
	assert.Empty(t, cfg.Filter)
}

func TestParseEnvConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("ES_TAP_RINGBUF", "/sys/fs/bpf/other")
	t.Setenv("ES_TAP_KINDS", "setuid,setgid")
	t.Setenv("ES_TAP_FILTER", `kind == "setgid"`)
	t.Setenv("ES_TAP_DEDUP_SIZE", "16")
	t.Setenv("ES_TAP_OUTPUT", "both")

	cfg, err := ParseEnvConfig()
	require.NoError(t, err)
	assert.Equal(t, "/sys/fs/bpf/other", cfg.RingBuf)
	assert.Equal(t, []string{"setuid", "setgid"}, cfg.Kinds)
	assert.Equal(t, `kind == "setgid"`, cfg.Filter)
	assert.Equal(t, 16, cfg.DedupSize)
	assert.Equal(t, OutputBoth, cfg.Output)
}

func TestParseEnvConfig_InvalidInt(t *testing.T) {
	clearEnv(t)
	t.Setenv("ES_TAP_DEDUP_SIZE", "lots")

	_, err := ParseEnvConfig()
	require.Error(t, err)
}

func TestResolve_EnvOnly(t *testing.T) {
	clearEnv(t)
	envCfg, err := ParseEnvConfig()
	require.NoError(t, err)

	cfg, err := Resolve(envCfg, nil, Flags{})
	require.NoError(t, err)
	assert.Equal(t, "/sys/fs/bpf/es_events", cfg.RingBufPath)
	assert.Empty(t, cfg.Kinds)
	assert.True(t, cfg.WantsStdout())
	assert.False(t, cfg.WantsOTEL())
}

func TestResolve_Precedence(t *testing.T) {
	envCfg := &EnvConfig{
		RingBuf:    "/env/ringbuf",
		Kinds:      []string{"exit"},
		Filter:     "env_filter",
		Attributes: "env_attr=kind",
		DedupSize:  10,
		Output:     OutputStdout,
	}
	file := &FileConfig{
		RingBuf:    "/file/ringbuf",
		Kinds:      []string{"setgid"},
		Attributes: []CustomAttribute{{Name: "file_attr", Expression: "event.gid"}},
		DedupSize:  intPtr(20),
		Output:     OutputOTEL,
	}
	flags := Flags{
		Kinds:      []string{"lw_session_lock", "lw_session_unlock"},
		Attributes: []string{"cli_attr=process.pid"},
		DedupSize:  intPtr(0),
	}

	cfg, err := Resolve(envCfg, file, flags)
	require.NoError(t, err)

	assert.Equal(t, "/file/ringbuf", cfg.RingBufPath, "file overrides env")
	assert.Equal(t, "env_filter", cfg.Filter, "unset file and flag keep env")
	assert.Equal(t, OutputOTEL, cfg.Output)
	assert.Equal(t, 0, cfg.DedupSize, "flag overrides file, even with zero")
	assert.Equal(t, []event.Kind{event.KindLwSessionLock, event.KindLwSessionUnlock}, cfg.Kinds)

	require.Len(t, cfg.CustomAttributes, 3)
	assert.Equal(t, "env_attr", cfg.CustomAttributes[0].Name)
	assert.Equal(t, "file_attr", cfg.CustomAttributes[1].Name)
	assert.Equal(t, "cli_attr", cfg.CustomAttributes[2].Name)
}

func TestResolve_UnknownKinds(t *testing.T) {
	envCfg := &EnvConfig{RingBuf: "/r", Output: OutputStdout}

	_, err := Resolve(envCfg, nil, Flags{Kinds: []string{"exec", "setgid", "fork"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown event kind "exec"`)
	assert.Contains(t, err.Error(), `unknown event kind "fork"`)
}

func TestResolve_InvalidOutput(t *testing.T) {
	envCfg := &EnvConfig{RingBuf: "/r", Output: "syslog"}

	_, err := Resolve(envCfg, nil, Flags{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output must be one of")
}

func TestResolve_NegativeDedup(t *testing.T) {
	envCfg := &EnvConfig{RingBuf: "/r", Output: OutputStdout}

	_, err := Resolve(envCfg, nil, Flags{DedupSize: intPtr(-1)})
	require.Error(t, err)
}

func TestResolve_InvalidFlagAttribute(t *testing.T) {
	envCfg := &EnvConfig{RingBuf: "/r", Output: OutputStdout}

	_, err := Resolve(envCfg, nil, Flags{Attributes: []string{"no_equals"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid attribute format")
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
ringbuf: /sys/fs/bpf/es
kinds: [setuid, setgid]
filter: 'process.euid == 0'
trace_id: 'string(process.session_id)'
dedup_size: 128
rules_dir: /etc/es-tap/rules
output: both
attributes:
  - name: exe
    expr: process.executable.path
  - name: user
    expr: event.username
`)

	fc, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/sys/fs/bpf/es", fc.RingBuf)
	assert.Equal(t, []string{"setuid", "setgid"}, fc.Kinds)
	assert.Equal(t, "process.euid == 0", fc.Filter)
	assert.Equal(t, "string(process.session_id)", fc.TraceID)
	require.NotNil(t, fc.DedupSize)
	assert.Equal(t, 128, *fc.DedupSize)
	assert.Equal(t, "/etc/es-tap/rules", fc.RulesDir)
	assert.Equal(t, OutputBoth, fc.Output)
	assert.Equal(t, []CustomAttribute{
		{Name: "exe", Expression: "process.executable.path"},
		{Name: "user", Expression: "event.username"},
	}, fc.Attributes)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadFile_Malformed(t *testing.T) {
	_, err := LoadFile(writeFile(t, "kinds: [setuid\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestLoadFile_EmptyAttributeExpression(t *testing.T) {
	_, err := LoadFile(writeFile(t, "attributes:\n  - name: x\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expression cannot be empty")
}

func TestParseAttributeString_Valid(t *testing.T) {
	attrs, err := ParseAttributeString(`user=event.username;exe=process.executable.path;k=kind`)

	require.NoError(t, err)
	require.Len(t, attrs, 3)
	assert.Equal(t, CustomAttribute{Name: "user", Expression: "event.username"}, attrs[0])
	assert.Equal(t, CustomAttribute{Name: "exe", Expression: "process.executable.path"}, attrs[1])
	assert.Equal(t, CustomAttribute{Name: "k", Expression: "kind"}, attrs[2])
}

func TestParseAttributeString_Empty(t *testing.T) {
	attrs, err := ParseAttributeString("")
	require.NoError(t, err)
	assert.Nil(t, attrs)
}

func TestParseAttributeString_ExpressionWithEquals(t *testing.T) {
	attrs, err := ParseAttributeString(`root=process.euid == 0`)
	require.NoError(t, err)
	require.Len(t, attrs, 1)
	assert.Equal(t, "process.euid == 0", attrs[0].Expression)
}

func TestParseAttributeString_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no equals", "invalid_no_equals", "invalid attribute format"},
		{"empty name", "=value", "name cannot be empty"},
		{"empty expression", "name=", "expression cannot be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAttributeString(tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseAttributeString_WhitespaceAndEmptySections(t *testing.T) {
	attrs, err := ParseAttributeString("  foo  =  bar  ;;  baz  =  qux  ;")

	require.NoError(t, err)
	require.Len(t, attrs, 2)
	assert.Equal(t, CustomAttribute{Name: "foo", Expression: "bar"}, attrs[0])
	assert.Equal(t, CustomAttribute{Name: "baz", Expression: "qux"}, attrs[1])
}

func TestOTELConfig_GetEndpoint(t *testing.T) {
	assert.Equal(t, "localhost:4318", (&OTELConfig{}).GetEndpoint())
	assert.Equal(t, "collector:4318", (&OTELConfig{ExporterEndpoint: "collector:4318"}).GetEndpoint())
	assert.Equal(t, "traces:4318", (&OTELConfig{
		ExporterEndpoint: "collector:4318",
		TracesEndpoint:   "traces:4318",
	}).GetEndpoint())
}

func TestOTELConfig_ParseResourceAttributes(t *testing.T) {
	cfg := &OTELConfig{ResourceAttributes: "host.name=mac01, deployment.environment = prod,broken,=x"}

	attrs := cfg.ParseResourceAttributes()
	require.Len(t, attrs, 2)
	assert.Equal(t, "host.name", string(attrs[0].Key))
	assert.Equal(t, "mac01", attrs[0].Value.AsString())
	assert.Equal(t, "deployment.environment", string(attrs[1].Key))
	assert.Equal(t, "prod", attrs[1].Value.AsString())
}

func TestParseOTELConfig_Defaults(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "")
	require.NoError(t, os.Unsetenv("OTEL_SERVICE_NAME"))

	cfg, err := ParseOTELConfig()
	require.NoError(t, err)
	assert.Equal(t, "es-tap", cfg.ServiceName)
}
