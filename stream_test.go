package conduit

import (
	"context"
	"errors"
	"testing"
	"time"
)

// newTestSession prepares a single in-memory segment shared by a producer
// and a consumer view of the same bytes, as two separate processes would
// share one mmap'd region.
func newTestSession(t *testing.T, dataLen int) []byte {
	t.Helper()
	base := make([]byte, HeaderSize+dataLen)
	if err := Prepare(base); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	return base
}

func attachBoth(t *testing.T, base []byte) (*Producer, *Consumer) {
	t.Helper()
	p, err := AttachProducer(base)
	if err != nil {
		t.Fatalf("AttachProducer: %v", err)
	}
	c, err := AttachConsumer(base)
	if err != nil {
		t.Fatalf("AttachConsumer: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.WaitReady(ctx); err != nil {
		t.Fatalf("producer WaitReady: %v", err)
	}
	if err := c.WaitReady(ctx); err != nil {
		t.Fatalf("consumer WaitReady: %v", err)
	}
	return p, c
}

// S1: small payload, one shot.
func TestScenarioSmallPayloadOneShot(t *testing.T) {
	base := newTestSession(t, 128) // L = 256, D = 128
	p, c := attachBoth(t, base)

	ctx := context.Background()
	payload := []byte("hello\n")
	if err := p.WriteAll(ctx, payload); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}

	got := make([]byte, len(payload))
	if err := c.ReadExact(ctx, got); err != nil {
		t.Fatalf("ReadExact: %v", err)
	}
	if string(got) != "hello\n" {
		t.Fatalf("got %q, want %q", got, "hello\n")
	}

	p.Close()
	c.Close()
	if p.bytesWritten != 6 || c.bytesRead != 6 {
		t.Fatalf("counts ended at (%d, %d), want (6, 6)", p.bytesWritten, c.bytesRead)
	}
}

// S2: payload larger than the ring, read back in fixed-size chunks.
func TestScenarioPayloadLargerThanRing(t *testing.T) {
	base := newTestSession(t, 128) // L = 256, D = 128
	p, c := attachBoth(t, base)

	const total = 300
	payload := make([]byte, total)
	for i := range payload {
		payload[i] = byte(i % 256)
	}

	ctx := context.Background()
	done := make(chan error, 1)
	go func() {
		done <- p.WriteAll(ctx, payload)
	}()

	got := make([]byte, 0, total)
	chunk := make([]byte, 17)
	for len(got) < total {
		n := 17
		if total-len(got) < n {
			n = total - len(got)
		}
		if err := c.ReadExact(ctx, chunk[:n]); err != nil {
			t.Fatalf("ReadExact: %v", err)
		}
		got = append(got, chunk[:n]...)
	}

	if err := <-done; err != nil {
		t.Fatalf("producer WriteAll: %v", err)
	}
	for i := 0; i < total; i++ {
		if got[i] != byte(i%256) {
			t.Fatalf("byte %d = %d, want %d", i, got[i], i%256)
		}
	}
}

// S4: abrupt producer drop after a partial write.
func TestScenarioAbruptProducerDrop(t *testing.T) {
	base := newTestSession(t, 128)
	p, c := attachBoth(t, base)

	ctx := context.Background()
	payload := make([]byte, 50)
	if err := p.WriteAll(ctx, payload); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	p.Close()

	if err := c.ReadExact(ctx, make([]byte, 50)); err != nil {
		t.Fatalf("ReadExact of the 50 bytes already written: %v", err)
	}

	err := c.ReadExact(ctx, make([]byte, 1))
	if !errors.Is(err, ErrEnded) {
		t.Fatalf("ReadExact past the end = %v, want Ended", err)
	}
}

// S5: a consumer that attaches with the wrong mapped length.
func TestScenarioHandshakeLengthMismatch(t *testing.T) {
	producerBase := make([]byte, HeaderSize+128) // L = HeaderSize+128 (256 with a 64-byte cache line)
	if err := Prepare(producerBase); err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	p, err := AttachProducer(producerBase)
	if err != nil {
		t.Fatalf("AttachProducer: %v", err)
	}

	// The consumer mistakenly views a shorter mapping of the very same
	// header (e.g. it truncated its own mmap length incorrectly).
	consumerBase := producerBase[:len(producerBase)-8]
	c, err := AttachConsumer(consumerBase)
	if err != nil {
		t.Fatalf("AttachConsumer: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	errP := p.WaitReady(ctx)
	errC := c.WaitReady(ctx)
	if !errors.Is(errP, ErrGeometryMismatch) {
		t.Fatalf("producer WaitReady = %v, want GeometryMismatch", errP)
	}
	if !errors.Is(errC, ErrGeometryMismatch) {
		t.Fatalf("consumer WaitReady = %v, want GeometryMismatch", errC)
	}
}
