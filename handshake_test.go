package conduit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestHandshakeHappyPath(t *testing.T) {
	base := make([]byte, HeaderSize+64)
	if err := Prepare(base); err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	h, err := newHeaderView(base)
	if err != nil {
		t.Fatalf("newHeaderView: %v", err)
	}

	producerAttach(h, uint64(len(base)))
	if got := h.producerRow().loadStatus(); got != StatusProducerReady {
		t.Fatalf("producer status = %d, want ProducerReady", got)
	}

	if err := consumerAttach(h, uint64(len(base))); err != nil {
		t.Fatalf("consumerAttach: %v", err)
	}
	if got := h.producerRow().loadStatus(); got != StatusConsumerAlsoReady {
		t.Fatalf("rendezvous status = %d, want ConsumerAlsoReady", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := producerWaitReady(ctx, h, uint64(len(base))); err != nil {
		t.Fatalf("producerWaitReady: %v", err)
	}
	if got := h.producerRow().loadStatus(); got != StatusStreaming {
		t.Fatalf("rendezvous status = %d, want Streaming", got)
	}
	if err := consumerWaitReady(ctx, h, uint64(len(base))); err != nil {
		t.Fatalf("consumerWaitReady: %v", err)
	}
}

func TestHandshakeGeometryMismatch(t *testing.T) {
	base := make([]byte, HeaderSize+64)
	if err := Prepare(base); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	h, err := newHeaderView(base)
	if err != nil {
		t.Fatalf("newHeaderView: %v", err)
	}

	producerAttach(h, uint64(len(base)))
	if err := consumerAttach(h, uint64(len(base))+1); err != nil {
		t.Fatalf("consumerAttach: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err = producerWaitReady(ctx, h, uint64(len(base)))
	if !errors.Is(err, ErrGeometryMismatch) {
		t.Fatalf("producerWaitReady = %v, want GeometryMismatch", err)
	}
	if got := h.producerRow().loadStatus(); got != StatusAborted {
		t.Fatalf("producer status = %d, want Aborted", got)
	}

	err = consumerWaitReady(ctx, h, uint64(len(base)))
	if !errors.Is(err, ErrHandshakeFailed) {
		t.Fatalf("consumerWaitReady = %v, want HandshakeFailed once producer aborted", err)
	}
}

func TestHandshakeConsumerSeesGeometryMismatch(t *testing.T) {
	// Drive consumerWaitReady directly past a Streaming transition with
	// mismatched lengths, simulating a producer that did not itself
	// validate (defense in depth on the consumer side).
	base := make([]byte, HeaderSize+64)
	if err := Prepare(base); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	h, err := newHeaderView(base)
	if err != nil {
		t.Fatalf("newHeaderView: %v", err)
	}

	h.producerRow().storeLength(uint64(len(base)) + 1)
	h.producerRow().storeStatus(StatusStreaming)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err = consumerWaitReady(ctx, h, uint64(len(base)))
	if !errors.Is(err, ErrGeometryMismatch) {
		t.Fatalf("consumerWaitReady = %v, want GeometryMismatch", err)
	}
	if got := h.consumerRow().loadStatus(); got != StatusAborted {
		t.Fatalf("consumer status = %d, want Aborted", got)
	}
}

func TestHandshakeThirdPartyCorruption(t *testing.T) {
	base := make([]byte, HeaderSize+64)
	if err := Prepare(base); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	h, err := newHeaderView(base)
	if err != nil {
		t.Fatalf("newHeaderView: %v", err)
	}

	producerAttach(h, uint64(len(base)))

	// A third party stomps the rendezvous word before the consumer CASes it.
	h.producerRow().storeStatus(99)

	err = consumerAttach(h, uint64(len(base)))
	if !errors.Is(err, ErrHandshakeFailed) {
		t.Fatalf("consumerAttach = %v, want HandshakeFailed", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err = producerWaitReady(ctx, h, uint64(len(base)))
	if !errors.Is(err, ErrHandshakeFailed) {
		t.Fatalf("producerWaitReady = %v, want HandshakeFailed", err)
	}
	if got := h.producerRow().loadStatus(); got != StatusAborted {
		t.Fatalf("producer status = %d, want Aborted", got)
	}
}

func TestValidateStatusRejectsUnknownCodes(t *testing.T) {
	for _, v := range []uint64{StatusProducerReady, StatusConsumerAlsoReady, StatusStreaming, StatusAborted, StatusDisconnected} {
		if err := validateStatus(v); err != nil {
			t.Fatalf("validateStatus(%d) = %v, want nil", v, err)
		}
	}
	err := validateStatus(77)
	if !errors.Is(err, &Error{Kind: KindInvalidStatus}) {
		t.Fatalf("validateStatus(77) = %v, want KindInvalidStatus", err)
	}
}
