package event

import (
	"unsafe"

	"github.com/mrzor/endpoint-sec/internal/descriptor"
	"github.com/mrzor/endpoint-sec/internal/essys"
)

// File is a file referenced by an event, usually its target.
type File struct{ view }

// Path is the absolute path of the file.
// The bytes alias the message buffer: copy them to keep them past the
// callback.
func (f File) Path() []byte {
	return f.str(at[essys.File](f.view).Path)
}

// PathTruncated reports whether Path was cut at the producer's path limit.
func (f File) PathTruncated() bool {
	return at[essys.File](f.view).PathTruncated != 0
}

// Stat is the file's stat information, embedded in the file record.
func (f File) Stat() Stat {
	return Stat{f.child(f.off + uint64(unsafe.Offsetof(essys.File{}.Stat)))}
}

var fileDesc = descriptor.New("File", descriptor.ClassShareable,
	descriptor.Fn("path", File.Path),
	descriptor.Fn("path_truncated", File.PathTruncated),
	descriptor.Nest("stat", File.Stat, statDesc),
)

func (f File) String() string         { return fileDesc.Format(f) }
func (f File) Equal(o File) bool      { return fileDesc.Equal(f, o) }
func (f File) Hash() uint64           { return fileDesc.Hash(f) }
func (f File) Fields() map[string]any { return fileDesc.Map(f) }

// Stat is the subset of struct stat the producer reports.
type Stat struct{ view }

func (s Stat) raw() *essys.Stat { return at[essys.Stat](s.view) }

func (s Stat) Dev() int32    { return s.raw().Dev }
func (s Stat) Ino() uint64   { return s.raw().Ino }
func (s Stat) Mode() uint16  { return s.raw().Mode }
func (s Stat) Nlink() uint16 { return s.raw().Nlink }
func (s Stat) UID() uint32   { return s.raw().UID }
func (s Stat) GID() uint32   { return s.raw().GID }
func (s Stat) Rdev() int32   { return s.raw().Rdev }
func (s Stat) Size() int64   { return s.raw().Size }

var statDesc = descriptor.New("Stat", descriptor.ClassShareable,
	descriptor.Fn("st_dev", Stat.Dev),
	descriptor.Fn("st_ino", Stat.Ino),
	descriptor.Fn("st_mode", Stat.Mode),
	descriptor.Fn("st_nlink", Stat.Nlink),
	descriptor.Fn("st_uid", Stat.UID),
	descriptor.Fn("st_gid", Stat.GID),
	descriptor.Fn("st_rdev", Stat.Rdev),
	descriptor.Fn("st_size", Stat.Size),
)

func (s Stat) String() string         { return statDesc.Format(s) }
func (s Stat) Equal(o Stat) bool      { return statDesc.Equal(s, o) }
func (s Stat) Hash() uint64           { return statDesc.Hash(s) }
func (s Stat) Fields() map[string]any { return statDesc.Map(s) }
