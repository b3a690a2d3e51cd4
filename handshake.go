// handshake.go: producer/consumer rendezvous state machine
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package conduit

import "context"

// validateStatus rejects any status word outside the five enumerated
// codes. It is used on the post-handshake hot path, where only
// Streaming, Aborted, and Disconnected are expected; ProducerReady and
// ConsumerAlsoReady are handshake-only but still valid codes.
func validateStatus(v uint64) error {
	switch v {
	case StatusProducerReady, StatusConsumerAlsoReady, StatusStreaming, StatusAborted, StatusDisconnected:
		return nil
	default:
		return newError(KindInvalidStatus, "status word holds unexpected value %d", v)
	}
}

// producerAttach performs step 1 of the handshake: write this endpoint's
// own length/count, then publish ProducerReady on the rendezvous word
// (the producer row's status).
func producerAttach(h *headerView, length uint64) {
	own := h.producerRow()
	own.storeLength(length)
	own.storeCount(0)
	own.storeStatus(StatusProducerReady)
}

// consumerAttach performs step 2: write this endpoint's own length/count,
// then CAS the rendezvous word from ProducerReady to ConsumerAlsoReady.
// A CAS failure (the value is already Streaming, Aborted, or anything
// unexpected) is HandshakeFailed. On success the consumer's own status is
// set to Streaming, the value the producer's liveness check looks for;
// consumerWaitReady moves it to Aborted if the handshake then fails.
func consumerAttach(h *headerView, length uint64) error {
	own := h.consumerRow()
	own.storeLength(length)
	own.storeCount(0)

	producerStatus := h.producerRow().statusPtr()
	if !casUint64(producerStatus, StatusProducerReady, StatusConsumerAlsoReady) {
		return ErrHandshakeFailed
	}
	own.storeStatus(StatusStreaming)
	return nil
}

// producerWaitReady performs steps 3: wait for the rendezvous word to
// leave ProducerReady, validate the consumer's declared length, and CAS
// to Streaming.
func producerWaitReady(ctx context.Context, h *headerView, length uint64) error {
	own := h.producerRow()

	err := spinThenWait(ctx, func() bool {
		return own.loadStatus() != StatusProducerReady
	})
	if err != nil {
		return timeoutError(err)
	}

	v := own.loadStatus()
	if v != StatusConsumerAlsoReady {
		// Either Aborted, or some unexpected value; either way the
		// handshake cannot proceed.
		if v != StatusAborted && v != StatusDisconnected {
			own.storeStatus(StatusAborted)
		}
		return ErrHandshakeFailed
	}

	peerLength := h.consumerRow().loadLength()
	if peerLength != length {
		own.storeStatus(StatusAborted)
		return ErrGeometryMismatch
	}

	if !casUint64(own.statusPtr(), StatusConsumerAlsoReady, StatusStreaming) {
		own.storeStatus(StatusAborted)
		return ErrHandshakeFailed
	}
	return nil
}

// consumerWaitReady performs step 4: wait for the rendezvous word to
// become Streaming or a terminal value.
func consumerWaitReady(ctx context.Context, h *headerView, length uint64) error {
	producerStatus := h.producerRow().statusPtr()

	err := spinThenWait(ctx, func() bool {
		v := loadUint64(producerStatus)
		return v == StatusStreaming || v == StatusAborted || v == StatusDisconnected
	})
	if err != nil {
		return timeoutError(err)
	}

	switch loadUint64(producerStatus) {
	case StatusStreaming:
		peerLength := h.producerRow().loadLength()
		if peerLength != length {
			h.consumerRow().storeStatus(StatusAborted)
			return ErrGeometryMismatch
		}
		return nil
	case StatusAborted:
		// The producer may have aborted for the very same geometry
		// mismatch this endpoint would have caught on its own; its
		// declared length is published before any status transition,
		// so it is safe to read here regardless of how it got here.
		if h.producerRow().loadLength() != length {
			h.consumerRow().storeStatus(StatusAborted)
			return ErrGeometryMismatch
		}
		h.consumerRow().storeStatus(StatusAborted)
		return ErrHandshakeFailed
	default:
		h.consumerRow().storeStatus(StatusAborted)
		return ErrHandshakeFailed
	}
}
