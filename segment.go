// segment.go: POSIX shared-memory segment adapter
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package conduit

import (
	"os"

	"golang.org/x/sys/unix"
)

// shmDir is where Linux exposes POSIX shared-memory objects as regular
// files; shm_open(3) on glibc is itself implemented this way, so opening
// a file here has the same create-or-attach semantics without cgo.
const shmDir = "/dev/shm/"

// Segment is a shared, memory-mapped byte region identified by a name.
// It is created by the producer before the rendezvous message is sent,
// and mapped by the consumer on receipt of that message.
type Segment struct {
	name string
	data []byte
}

// Open creates-or-opens the named shared-memory object, resizes it to
// size bytes, and maps it read/write. name must be non-empty ASCII with
// no interior NUL byte (a trailing NUL, if present, is stripped).
func Open(name string, size int64) (*Segment, error) {
	cleanName, err := validateName(name)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(shmDir+cleanName, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, wrapError(KindSystemError, err, "opening shared memory object %q", cleanName)
	}
	defer f.Close()

	if err := f.Truncate(size); err != nil {
		return nil, wrapError(KindSystemError, err, "sizing shared memory object %q to %d bytes", cleanName, size)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, wrapError(KindSystemError, err, "mapping shared memory object %q", cleanName)
	}

	return &Segment{name: cleanName, data: data}, nil
}

// Bytes returns the mapped region. It is shared by both endpoints; callers
// should treat it as read-only except through the Producer/Consumer
// atomic accessors and, for the producer, the data-area bytes it owns.
func (s *Segment) Bytes() []byte { return s.data }

// Name returns the segment's (NUL-stripped) name.
func (s *Segment) Name() string { return s.name }

// Close unmaps the segment's view. It does not unlink the name; the last
// surviving process should call Unlink explicitly once both endpoints
// are done with the session (see SPEC_FULL.md §6).
func (s *Segment) Close() error {
	if s.data == nil {
		return nil
	}
	err := unix.Munmap(s.data)
	s.data = nil
	if err != nil {
		return wrapError(KindSystemError, err, "unmapping shared memory object %q", s.name)
	}
	return nil
}

// Unlink removes the named shared-memory object from the system. Callers
// choose when to call this; a session that intends to be reused should
// never call it, and a one-shot session typically calls it after
// WaitReady completes on the producer side, or after both endpoints exit.
func Unlink(name string) error {
	cleanName, err := validateName(name)
	if err != nil {
		return err
	}
	if err := os.Remove(shmDir + cleanName); err != nil && !os.IsNotExist(err) {
		return wrapError(KindSystemError, err, "unlinking shared memory object %q", cleanName)
	}
	return nil
}

// validateName enforces the ASCII / NUL rules of SPEC_FULL.md §6: a
// non-empty ASCII string containing no interior NUL byte. A single
// trailing NUL, if present (as produced by the rendezvous wire format),
// is accepted and stripped.
func validateName(name string) (string, error) {
	if name == "" {
		return "", ErrNameInvalid
	}

	trimmed := name
	if trimmed[len(trimmed)-1] == 0 {
		trimmed = trimmed[:len(trimmed)-1]
	}
	if trimmed == "" {
		return "", ErrNameInvalid
	}

	for i := 0; i < len(trimmed); i++ {
		c := trimmed[i]
		if c == 0 {
			return "", ErrNameInvalid
		}
		if c > unicode7BitMax {
			return "", ErrNameInvalid
		}
	}
	return trimmed, nil
}

// unicode7BitMax is the highest byte value valid in 7-bit ASCII.
const unicode7BitMax = 0x7F
