//go:build windows

// File: channel/file_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Windows file channels. Handles are opened FILE_FLAG_OVERLAPPED and
// bound to the completion port; sequential channels keep an explicit
// position cursor because every overlapped transfer names its offset.

package channel

import (
	"context"
	"math"
	"strings"

	"golang.org/x/sys/windows"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/handle"
	"github.com/momentics/hioload-aio/reactor"
)

// appendOffset makes WriteFile append atomically regardless of the
// current end of file.
const appendOffset = uint64(math.MaxUint64)

// makeCreateParams translates a validated flag combination into
// CreateFile access and disposition.
func makeCreateParams(fl FileFlags) (access uint32, disposition uint32, ok bool) {
	if !validFlags(fl) {
		return 0, 0, false
	}
	if fl&Read != 0 {
		access |= windows.GENERIC_READ
	}
	if fl&Write != 0 {
		access |= windows.GENERIC_WRITE
	}
	if fl&Write == 0 {
		return access, windows.OPEN_EXISTING, true
	}
	switch {
	case fl&CreateNew != 0 && fl&OpenExisting == 0:
		disposition = windows.CREATE_NEW
	case fl&CreateNew != 0 && fl&OpenExisting != 0:
		if fl&Trunc != 0 {
			disposition = windows.CREATE_ALWAYS
		} else {
			disposition = windows.OPEN_ALWAYS
		}
	default:
		if fl&Trunc != 0 {
			disposition = windows.TRUNCATE_EXISTING
		} else {
			disposition = windows.OPEN_EXISTING
		}
	}
	return access, disposition, true
}

type fileBase struct {
	fd handle.Handle
	rh *reactor.Handle
}

// IsOpen reports whether the channel is in the open state.
func (b *fileBase) IsOpen() bool { return b.fd.Valid() }

func (b *fileBase) open(ctx context.Context, path string, fl FileFlags) error {
	if b.IsOpen() {
		return api.ErrChannelAlreadyOpen
	}
	access, disposition, ok := makeCreateParams(fl)
	if !ok {
		return api.ErrInvalidFlags
	}
	if strings.IndexByte(path, 0) >= 0 {
		return windows.ERROR_FILE_NOT_FOUND
	}
	rh, err := reactor.Acquire()
	if err != nil {
		return err
	}
	nh, err := rh.AsyncCreateFile(ctx, path, access,
		uint32(windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE),
		disposition, windows.FILE_ATTRIBUTE_NORMAL)
	if err != nil {
		rh.Release()
		return err
	}
	b.fd.Assign(nh)
	b.rh = rh
	return nil
}

// Close closes the channel. Closing a closed channel reports
// ErrChannelNotOpen.
func (b *fileBase) Close() error {
	if !b.IsOpen() {
		return api.ErrChannelNotOpen
	}
	err := b.fd.Close()
	b.rh.Release()
	b.rh = nil
	return err
}

// AsyncClose closes the channel on an executor worker.
func (b *fileBase) AsyncClose(ctx context.Context) error {
	if !b.IsOpen() {
		return api.ErrChannelNotOpen
	}
	nh, _ := b.fd.Release()
	err := b.rh.AsyncCloseHandle(ctx, nh)
	b.rh.Release()
	b.rh = nil
	return err
}

/*
 * InSeqFile
 */

// InSeqFile is a sequential input file channel. EOF surfaces as
// api.ErrEndOfFile, never as a zero-byte success.
type InSeqFile struct {
	fileBase
	pos uint64
}

// NewInSeqFile returns a closed sequential input channel.
func NewInSeqFile() *InSeqFile { return &InSeqFile{} }

func inputFlags(fl FileFlags) (FileFlags, bool) {
	if fl == 0 {
		fl = Read
	}
	if fl&(Write|Append|Trunc|CreateNew) != 0 {
		return 0, false
	}
	return fl | Read, true
}

// Open opens path for sequential reading.
func (f *InSeqFile) Open(path string, fl FileFlags) error {
	return f.AsyncOpen(context.Background(), path, fl)
}

// AsyncOpen opens path for sequential reading on a worker.
func (f *InSeqFile) AsyncOpen(ctx context.Context, path string, fl FileFlags) error {
	fl, ok := inputFlags(fl)
	if !ok {
		return api.ErrInvalidFlags
	}
	return f.open(ctx, path, fl)
}

// ReadSome reads at the position cursor and advances it.
func (f *InSeqFile) ReadSome(buf api.Buffer) (int, error) {
	return f.AsyncReadSome(context.Background(), buf)
}

// AsyncReadSome reads at the position cursor and advances it.
func (f *InSeqFile) AsyncReadSome(ctx context.Context, buf api.Buffer) (int, error) {
	if !f.IsOpen() {
		return 0, api.ErrChannelNotOpen
	}
	span, ok := firstWritable(buf)
	if !ok {
		return 0, nil
	}
	n, err := f.rh.AsyncReadFileAt(ctx, f.fd.Get(), span, f.pos)
	n, err = commitRead(buf, n, err)
	f.pos += uint64(n)
	return n, err
}

/*
 * OutSeqFile
 */

// OutSeqFile is a sequential output file channel.
type OutSeqFile struct {
	fileBase
	pos      uint64
	appendTo bool
}

// NewOutSeqFile returns a closed sequential output channel.
func NewOutSeqFile() *OutSeqFile { return &OutSeqFile{} }

func outputFlags(fl FileFlags) (FileFlags, bool) {
	if fl&Read != 0 {
		return 0, false
	}
	return fl | Write, true
}

// Open opens path for sequential writing.
func (f *OutSeqFile) Open(path string, fl FileFlags) error {
	return f.AsyncOpen(context.Background(), path, fl)
}

// AsyncOpen opens path for sequential writing on a worker.
func (f *OutSeqFile) AsyncOpen(ctx context.Context, path string, fl FileFlags) error {
	ofl, ok := outputFlags(fl)
	if !ok {
		return api.ErrInvalidFlags
	}
	if err := f.open(ctx, path, ofl); err != nil {
		return err
	}
	f.appendTo = fl&Append != 0
	return nil
}

// WriteSome writes at the cursor (or end of file in append mode) and
// advances the cursor.
func (f *OutSeqFile) WriteSome(buf api.Buffer) (int, error) {
	return f.AsyncWriteSome(context.Background(), buf)
}

// AsyncWriteSome writes at the cursor (or end of file in append
// mode) and advances the cursor.
func (f *OutSeqFile) AsyncWriteSome(ctx context.Context, buf api.Buffer) (int, error) {
	if !f.IsOpen() {
		return 0, api.ErrChannelNotOpen
	}
	span, err := firstReadable(buf)
	if err != nil {
		return 0, err
	}
	off := f.pos
	if f.appendTo {
		off = appendOffset
	}
	n, werr := f.rh.AsyncWriteFileAt(ctx, f.fd.Get(), span, off)
	n, werr = discardWrite(buf, n, werr)
	if !f.appendTo {
		f.pos += uint64(n)
	}
	return n, werr
}

/*
 * DAFile
 */

// DAFile is a direct-access file channel.
type DAFile struct {
	fileBase
}

// NewDAFile returns a closed direct-access channel.
func NewDAFile() *DAFile { return &DAFile{} }

// Open opens path with the given access flags.
func (f *DAFile) Open(path string, fl FileFlags) error {
	return f.open(context.Background(), path, fl)
}

// AsyncOpen opens path on a worker.
func (f *DAFile) AsyncOpen(ctx context.Context, path string, fl FileFlags) error {
	return f.open(ctx, path, fl)
}

func checkOffset(off int64, n int) error {
	if off < 0 || off > math.MaxInt64-int64(n) {
		return api.ErrValueTooLarge
	}
	return nil
}

// ReadSomeAt reads at an explicit offset; no cursor is involved.
func (f *DAFile) ReadSomeAt(off int64, buf api.Buffer) (int, error) {
	return f.AsyncReadSomeAt(context.Background(), off, buf)
}

// AsyncReadSomeAt reads at an explicit offset; no cursor is involved.
func (f *DAFile) AsyncReadSomeAt(ctx context.Context, off int64, buf api.Buffer) (int, error) {
	if !f.IsOpen() {
		return 0, api.ErrChannelNotOpen
	}
	span, ok := firstWritable(buf)
	if !ok {
		return 0, nil
	}
	if err := checkOffset(off, len(span)); err != nil {
		return 0, err
	}
	n, err := f.rh.AsyncReadFileAt(ctx, f.fd.Get(), span, uint64(off))
	return commitRead(buf, n, err)
}

// WriteSomeAt writes at an explicit offset; no cursor is involved.
func (f *DAFile) WriteSomeAt(off int64, buf api.Buffer) (int, error) {
	return f.AsyncWriteSomeAt(context.Background(), off, buf)
}

// AsyncWriteSomeAt writes at an explicit offset; no cursor is
// involved.
func (f *DAFile) AsyncWriteSomeAt(ctx context.Context, off int64, buf api.Buffer) (int, error) {
	if !f.IsOpen() {
		return 0, api.ErrChannelNotOpen
	}
	span, err := firstReadable(buf)
	if err != nil {
		return 0, err
	}
	if err := checkOffset(off, len(span)); err != nil {
		return 0, err
	}
	n, werr := f.rh.AsyncWriteFileAt(ctx, f.fd.Get(), span, uint64(off))
	return discardWrite(buf, n, werr)
}
