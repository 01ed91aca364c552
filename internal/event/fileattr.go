package event

import (
	"github.com/mrzor/endpoint-sec/internal/descriptor"
	"github.com/mrzor/endpoint-sec/internal/essys"
)

// EventSetExtAttr is an extended attribute being set on a file.
type EventSetExtAttr struct{ view }

// Extattr is the name of the extended attribute being set.
// The bytes alias the message buffer: copy them to keep them past the
// callback.
func (e EventSetExtAttr) Extattr() []byte {
	return e.str(at[essys.EventSetExtAttr](e.view).Extattr)
}

// Target is the file the attribute is set on.
func (e EventSetExtAttr) Target() File {
	return File{e.child(at[essys.EventSetExtAttr](e.view).Target)}
}

var setExtAttrDesc = descriptor.New("EventSetExtAttr", descriptor.ClassShareable,
	descriptor.Fn("extattr", EventSetExtAttr.Extattr),
	descriptor.Nest("target", EventSetExtAttr.Target, fileDesc),
)

func (e EventSetExtAttr) Kind() Kind                   { return KindSetExtAttr }
func (e EventSetExtAttr) String() string               { return setExtAttrDesc.Format(e) }
func (e EventSetExtAttr) Equal(o EventSetExtAttr) bool { return setExtAttrDesc.Equal(e, o) }
func (e EventSetExtAttr) Hash() uint64                 { return setExtAttrDesc.Hash(e) }
func (e EventSetExtAttr) Fields() map[string]any       { return setExtAttrDesc.Map(e) }
func (e EventSetExtAttr) nested() descriptor.Nested    { return setExtAttrDesc.Bind(e) }

// EventDeleteExtAttr is an extended attribute being removed from a file.
type EventDeleteExtAttr struct{ view }

// Extattr is the name of the extended attribute being removed.
// The bytes alias the message buffer: copy them to keep them past the
// callback.
func (e EventDeleteExtAttr) Extattr() []byte {
	return e.str(at[essys.EventDeleteExtAttr](e.view).Extattr)
}

// Target is the file the attribute is removed from.
func (e EventDeleteExtAttr) Target() File {
	return File{e.child(at[essys.EventDeleteExtAttr](e.view).Target)}
}

var deleteExtAttrDesc = descriptor.New("EventDeleteExtAttr", descriptor.ClassShareable,
	descriptor.Fn("extattr", EventDeleteExtAttr.Extattr),
	descriptor.Nest("target", EventDeleteExtAttr.Target, fileDesc),
)

func (e EventDeleteExtAttr) Kind() Kind                      { return KindDeleteExtAttr }
func (e EventDeleteExtAttr) String() string                  { return deleteExtAttrDesc.Format(e) }
func (e EventDeleteExtAttr) Equal(o EventDeleteExtAttr) bool { return deleteExtAttrDesc.Equal(e, o) }
func (e EventDeleteExtAttr) Hash() uint64                    { return deleteExtAttrDesc.Hash(e) }
func (e EventDeleteExtAttr) Fields() map[string]any          { return deleteExtAttrDesc.Map(e) }
func (e EventDeleteExtAttr) nested() descriptor.Nested       { return deleteExtAttrDesc.Bind(e) }

// EventSetMode is a file's mode being changed.
type EventSetMode struct{ view }

// Mode is the new mode.
func (e EventSetMode) Mode() uint32 { return at[essys.EventSetMode](e.view).Mode }

// Target is the file whose mode changes.
func (e EventSetMode) Target() File {
	return File{e.child(at[essys.EventSetMode](e.view).Target)}
}

var setModeDesc = descriptor.New("EventSetMode", descriptor.ClassShareable,
	descriptor.Fn("mode", EventSetMode.Mode),
	descriptor.Nest("target", EventSetMode.Target, fileDesc),
)

func (e EventSetMode) Kind() Kind                { return KindSetMode }
func (e EventSetMode) String() string            { return setModeDesc.Format(e) }
func (e EventSetMode) Equal(o EventSetMode) bool { return setModeDesc.Equal(e, o) }
func (e EventSetMode) Hash() uint64              { return setModeDesc.Hash(e) }
func (e EventSetMode) Fields() map[string]any    { return setModeDesc.Map(e) }
func (e EventSetMode) nested() descriptor.Nested { return setModeDesc.Bind(e) }

// EventExit is a process exiting.
type EventExit struct{ view }

// Stat is the exit status, as returned by wait(2).
func (e EventExit) Stat() int32 { return at[essys.EventExit](e.view).Stat }

var exitDesc = descriptor.New("EventExit", descriptor.ClassShareable,
	descriptor.Fn("stat", EventExit.Stat),
)

func (e EventExit) Kind() Kind                { return KindExit }
func (e EventExit) String() string            { return exitDesc.Format(e) }
func (e EventExit) Equal(o EventExit) bool    { return exitDesc.Equal(e, o) }
func (e EventExit) Hash() uint64              { return exitDesc.Hash(e) }
func (e EventExit) Fields() map[string]any    { return exitDesc.Map(e) }
func (e EventExit) nested() descriptor.Nested { return exitDesc.Bind(e) }
