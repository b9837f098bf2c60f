// File: channel/fileflags.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// File-open configuration flags and the legality rules shared by all
// file channel flavours. The per-platform open files translate a
// validated combination into O_* bits or a CreateFile disposition.

package channel

// FileFlags configures a file channel open.
type FileFlags uint32

const (
	// Read requests read access.
	Read FileFlags = 1 << iota
	// Write requests write access.
	Write
	// Append positions every write at end of file.
	Append
	// Trunc truncates an existing file. It takes effect only together
	// with OpenExisting; with CreateNew alone it is accepted and has no
	// effect.
	Trunc
	// CreateNew creates the file; without OpenExisting the open fails
	// if the file already exists.
	CreateNew
	// OpenExisting opens an existing file; without CreateNew the open
	// fails if the file does not exist.
	OpenExisting
)

// validFlags applies the legality table: read-only opens admit no
// create/truncate/append modifier, and any write open must say
// whether it creates, opens, or both.
func validFlags(fl FileFlags) bool {
	if fl&(Read|Write) == 0 {
		return false
	}
	if fl&Read != 0 && fl&Write == 0 {
		return fl&(Trunc|Append|CreateNew) == 0
	}
	return fl&(CreateNew|OpenExisting) != 0
}
