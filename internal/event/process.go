package event

import (
	"github.com/mrzor/endpoint-sec/internal/descriptor"
	"github.com/mrzor/endpoint-sec/internal/essys"
)

// Process is the process that caused a message.
type Process struct{ view }

func (p Process) raw() *essys.Process { return at[essys.Process](p.view) }

// Pid is the process id from the audit token.
func (p Process) Pid() int32 { return p.raw().Pid }

// Euid is the effective user id from the audit token.
func (p Process) Euid() uint32 { return p.raw().Euid }

// Egid is the effective group id from the audit token.
func (p Process) Egid() uint32 { return p.raw().Egid }

// Ppid is the current parent process id. It changes when the process is
// reparented.
func (p Process) Ppid() int32 { return p.raw().Ppid }

// OriginalPpid is the parent process id at fork time.
func (p Process) OriginalPpid() int32 { return p.raw().OriginalPpid }

// GroupID is the process group id.
func (p Process) GroupID() int32 { return p.raw().GroupID }

// SessionID is the session id.
func (p Process) SessionID() int32 { return p.raw().SessionID }

// IsPlatformBinary reports whether the executable is signed by the platform.
func (p Process) IsPlatformBinary() bool { return p.raw().IsPlatformBinary != 0 }

// IsESClient reports whether the process is itself a monitoring client.
func (p Process) IsESClient() bool { return p.raw().IsESClient != 0 }

// Executable is the process's main executable file.
func (p Process) Executable() File {
	return File{p.child(p.raw().Executable)}
}

// SigningID is the code signing identifier, empty when unsigned.
// The bytes alias the message buffer: copy them to keep them past the
// callback.
func (p Process) SigningID() []byte { return p.str(p.raw().SigningID) }

// TeamID is the code signing team identifier, empty when unsigned or
// platform. The bytes alias the message buffer: copy them to keep them
// past the callback.
func (p Process) TeamID() []byte { return p.str(p.raw().TeamID) }

var processDesc = descriptor.New("Process", descriptor.ClassShareable,
	descriptor.Fn("pid", Process.Pid),
	descriptor.Fn("euid", Process.Euid),
	descriptor.Fn("egid", Process.Egid),
	descriptor.Fn("ppid", Process.Ppid),
	descriptor.Fn("original_ppid", Process.OriginalPpid),
	descriptor.Fn("group_id", Process.GroupID),
	descriptor.Fn("session_id", Process.SessionID),
	descriptor.Fn("is_platform_binary", Process.IsPlatformBinary),
	descriptor.Fn("is_es_client", Process.IsESClient),
	descriptor.Nest("executable", Process.Executable, fileDesc),
	descriptor.Fn("signing_id", Process.SigningID),
	descriptor.Fn("team_id", Process.TeamID),
)

func (p Process) String() string         { return processDesc.Format(p) }
func (p Process) Equal(o Process) bool   { return processDesc.Equal(p, o) }
func (p Process) Hash() uint64           { return processDesc.Hash(p) }
func (p Process) Fields() map[string]any { return processDesc.Map(p) }
