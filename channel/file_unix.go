//go:build linux || darwin

// File: channel/file_unix.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// POSIX file channels. Sequential channels ride the kernel file
// offset; the direct-access channel uses pread/pwrite and keeps no
// cursor. Opens and every transfer run through the reactor's
// thread-pool fallback in the async variants.

package channel

import (
	"context"
	"math"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/handle"
	"github.com/momentics/hioload-aio/reactor"
)

// makeOpenFlags translates a validated flag combination into O_* bits.
func makeOpenFlags(fl FileFlags) (int, bool) {
	if !validFlags(fl) {
		return 0, false
	}
	if fl&Read != 0 && fl&Write == 0 {
		return unix.O_RDONLY, true
	}
	var of int
	if fl&Read != 0 {
		of = unix.O_RDWR
	} else {
		of = unix.O_WRONLY
	}
	switch {
	case fl&CreateNew != 0 && fl&OpenExisting == 0:
		of |= unix.O_CREAT | unix.O_EXCL
	case fl&CreateNew != 0 && fl&OpenExisting != 0:
		if fl&Trunc != 0 {
			of |= unix.O_CREAT | unix.O_TRUNC
		} else {
			of |= unix.O_CREAT
		}
	default:
		if fl&Trunc != 0 {
			of |= unix.O_TRUNC
		}
	}
	if fl&Append != 0 {
		of |= unix.O_APPEND
	}
	return of, true
}

// fileBase carries the pieces common to every file channel flavour:
// the owned descriptor and the reactor reference held while open.
type fileBase struct {
	fd handle.Handle
	rh *reactor.Handle
}

// IsOpen reports whether the channel is in the open state.
func (b *fileBase) IsOpen() bool { return b.fd.Valid() }

func (b *fileBase) open(path string, fl FileFlags) error {
	if b.IsOpen() {
		return api.ErrChannelAlreadyOpen
	}
	of, ok := makeOpenFlags(fl)
	if !ok {
		return api.ErrInvalidFlags
	}
	if strings.IndexByte(path, 0) >= 0 {
		// A NUL can never name a file; fail before the syscall.
		return unix.ENOENT
	}
	rh, err := reactor.Acquire()
	if err != nil {
		return err
	}
	fd, err := unix.Open(path, of|unix.O_CLOEXEC, 0o666)
	if err != nil {
		rh.Release()
		return err
	}
	b.fd.Assign(fd)
	b.rh = rh
	return nil
}

func (b *fileBase) asyncOpen(ctx context.Context, path string, fl FileFlags) error {
	if b.IsOpen() {
		return api.ErrChannelAlreadyOpen
	}
	of, ok := makeOpenFlags(fl)
	if !ok {
		return api.ErrInvalidFlags
	}
	if strings.IndexByte(path, 0) >= 0 {
		return unix.ENOENT
	}
	rh, err := reactor.Acquire()
	if err != nil {
		return err
	}
	fd, err := rh.AsyncFdOpen(ctx, path, of, 0o666)
	if err != nil {
		rh.Release()
		return err
	}
	b.fd.Assign(fd)
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
	fd, _ := b.fd.Release()
	err := b.rh.AsyncFdClose(ctx, fd)
	b.rh.Release()
	b.rh = nil
	return err
}

/*
 * InSeqFile: sequential input. The kernel file offset is the read
 * cursor.
 */

// InSeqFile is a sequential input file channel. EOF surfaces as
// api.ErrEndOfFile, never as a zero-byte success.
type InSeqFile struct {
	fileBase
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
	fl, ok := inputFlags(fl)
	if !ok {
		return api.ErrInvalidFlags
	}
	return f.open(path, fl)
}

// AsyncOpen opens path for sequential reading on a worker.
func (f *InSeqFile) AsyncOpen(ctx context.Context, path string, fl FileFlags) error {
	fl, ok := inputFlags(fl)
	if !ok {
		return api.ErrInvalidFlags
	}
	return f.asyncOpen(ctx, path, fl)
}

// ReadSome reads into the buffer's writable window and commits what
// arrived. A full buffer reads zero bytes without error.
func (f *InSeqFile) ReadSome(buf api.Buffer) (int, error) {
	if !f.IsOpen() {
		return 0, api.ErrChannelNotOpen
	}
	span, ok := firstWritable(buf)
	if !ok {
		return 0, nil
	}
	n, err := unix.Read(f.fd.Get(), span)
	return commitRead(buf, n, err)
}

// AsyncReadSome is ReadSome with the syscall on a worker.
func (f *InSeqFile) AsyncReadSome(ctx context.Context, buf api.Buffer) (int, error) {
	if !f.IsOpen() {
		return 0, api.ErrChannelNotOpen
	}
	span, ok := firstWritable(buf)
	if !ok {
		return 0, nil
	}
	n, err := f.rh.AsyncFdRead(ctx, f.fd.Get(), span)
	return commitRead(buf, n, err)
}

/*
 * OutSeqFile: sequential output. Append mode writes at end of file;
 * otherwise the kernel offset is the write cursor.
 */

// OutSeqFile is a sequential output file channel.
type OutSeqFile struct {
	fileBase
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
	fl, ok := outputFlags(fl)
	if !ok {
		return api.ErrInvalidFlags
	}
	return f.open(path, fl)
}

// AsyncOpen opens path for sequential writing on a worker.
func (f *OutSeqFile) AsyncOpen(ctx context.Context, path string, fl FileFlags) error {
	fl, ok := outputFlags(fl)
	if !ok {
		return api.ErrInvalidFlags
	}
	return f.asyncOpen(ctx, path, fl)
}

// WriteSome writes the buffer's readable window and discards what was
// sent. Partial writes are normal.
func (f *OutSeqFile) WriteSome(buf api.Buffer) (int, error) {
	if !f.IsOpen() {
		return 0, api.ErrChannelNotOpen
	}
	span, err := firstReadable(buf)
	if err != nil {
		return 0, err
	}
	n, werr := unix.Write(f.fd.Get(), span)
	return discardWrite(buf, n, werr)
}

// AsyncWriteSome is WriteSome with the syscall on a worker.
func (f *OutSeqFile) AsyncWriteSome(ctx context.Context, buf api.Buffer) (int, error) {
	if !f.IsOpen() {
		return 0, api.ErrChannelNotOpen
	}
	span, err := firstReadable(buf)
	if err != nil {
		return 0, err
	}
	n, werr := f.rh.AsyncFdWrite(ctx, f.fd.Get(), span)
	return discardWrite(buf, n, werr)
}

/*
 * DAFile: direct access. Every transfer names its offset; no cursor
 * exists, so concurrent positioned reads are safe.
 */

// DAFile is a direct-access file channel.
type DAFile struct {
	fileBase
}

// NewDAFile returns a closed direct-access channel.
func NewDAFile() *DAFile { return &DAFile{} }

// Open opens path with the given access flags.
func (f *DAFile) Open(path string, fl FileFlags) error {
	return f.open(path, fl)
}

// AsyncOpen opens path on a worker.
func (f *DAFile) AsyncOpen(ctx context.Context, path string, fl FileFlags) error {
	return f.asyncOpen(ctx, path, fl)
}

func checkOffset(off int64, n int) error {
	if off < 0 || off > math.MaxInt64-int64(n) {
		return api.ErrValueTooLarge
	}
	return nil
}

// ReadSomeAt reads into the buffer's writable window at the given
// offset.
func (f *DAFile) ReadSomeAt(off int64, buf api.Buffer) (int, error) {
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
	n, err := unix.Pread(f.fd.Get(), span, off)
	return commitRead(buf, n, err)
}

// AsyncReadSomeAt is ReadSomeAt with the syscall on a worker.
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
	n, err := f.rh.AsyncFdPread(ctx, f.fd.Get(), span, off)
	return commitRead(buf, n, err)
}

// WriteSomeAt writes the buffer's readable window at the given
// offset.
func (f *DAFile) WriteSomeAt(off int64, buf api.Buffer) (int, error) {
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
	n, werr := unix.Pwrite(f.fd.Get(), span, off)
	return discardWrite(buf, n, werr)
}

// AsyncWriteSomeAt is WriteSomeAt with the syscall on a worker.
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
	n, werr := f.rh.AsyncFdPwrite(ctx, f.fd.Get(), span, off)
	return discardWrite(buf, n, werr)
}
