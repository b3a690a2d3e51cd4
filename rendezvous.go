// rendezvous.go: bootstrap message over the external Unix-domain socket
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package conduit

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// SendRendezvous writes the bootstrap message a producer sends a
// consumer before the shared-memory handshake: an 8-byte native-order
// segment size, followed by the NUL-terminated segment name. It is the
// only thing carried over the external rendezvous channel; the consumer
// does not reply (successful attachment is detected by the handshake
// itself, see WaitReady).
func SendRendezvous(w io.Writer, name string, size uint64) error {
	cleanName, err := validateName(name)
	if err != nil {
		return err
	}

	var sizeBuf [8]byte
	binary.NativeEndian.PutUint64(sizeBuf[:], size)
	if _, err := w.Write(sizeBuf[:]); err != nil {
		return fmt.Errorf("conduit: writing rendezvous size: %w", err)
	}

	if _, err := io.WriteString(w, cleanName); err != nil {
		return fmt.Errorf("conduit: writing rendezvous name: %w", err)
	}
	if _, err := w.Write([]byte{0}); err != nil {
		return fmt.Errorf("conduit: writing rendezvous name terminator: %w", err)
	}
	return nil
}

// ReceiveRendezvous reads the message SendRendezvous writes: the segment
// size followed by its NUL-terminated name.
func ReceiveRendezvous(r io.Reader) (name string, size uint64, err error) {
	var sizeBuf [8]byte
	if _, err := io.ReadFull(r, sizeBuf[:]); err != nil {
		return "", 0, fmt.Errorf("conduit: reading rendezvous size: %w", err)
	}
	size = binary.NativeEndian.Uint64(sizeBuf[:])

	br := bufio.NewReader(r)
	raw, err := br.ReadString(0)
	if err != nil {
		return "", 0, fmt.Errorf("conduit: reading rendezvous name: %w", err)
	}
	name = raw[:len(raw)-1] // strip the NUL ReadString stopped at

	if _, err := validateName(name); err != nil {
		return "", 0, err
	}
	return name, size, nil
}
