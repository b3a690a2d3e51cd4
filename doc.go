// doc.go: package overview and quick start
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

// Package conduit provides a single-producer/single-consumer byte stream
// carried over a POSIX shared-memory segment between two cooperating
// processes on the same host.
//
// A short Unix-domain-socket bootstrap (package-level SendRendezvous /
// ReceiveRendezvous) hands the consumer the segment name and size; the
// core of this package is the lock-free ring buffer embedded in the
// mapped segment and the handshake that brings both endpoints online.
//
// # Quick Start
//
// Producer side, after creating the segment (see Open):
//
//	seg, err := conduit.Open("my-stream", 1<<20)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer seg.Close()
//
//	if err := conduit.Prepare(seg.Bytes()); err != nil {
//		log.Fatal(err)
//	}
//
//	producer, err := conduit.AttachProducer(seg.Bytes())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
//	defer cancel()
//	if err := producer.WaitReady(ctx); err != nil {
//		log.Fatal(err)
//	}
//
//	if err := producer.WriteAll(ctx, []byte("hello\n")); err != nil {
//		log.Fatal(err)
//	}
//
// Consumer side, once it has mapped the same segment name at the same size:
//
//	consumer, err := conduit.AttachConsumer(seg.Bytes())
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := consumer.WaitReady(ctx); err != nil {
//		log.Fatal(err)
//	}
//
//	buf := make([]byte, 6)
//	if err := consumer.ReadExact(ctx, buf); err != nil {
//		log.Fatal(err)
//	}
//
// # Geometry
//
// Both endpoints must be attached to mappings of the same total length L.
// The header occupies the first 2*CacheLine bytes; the remaining
// L - 2*CacheLine bytes are the ring ("data area", D). Producer and
// consumer each track a monotonic byte counter; the ring position is
// counter mod D. A mismatched L between producer and consumer fails the
// handshake with ErrGeometryMismatch on both sides.
//
// # Concurrency model
//
// Exactly one producer process and one consumer process attach to a
// segment for its lifetime; reattaching, or running a second producer or
// consumer concurrently, is not supported (see Non-goals in SPEC_FULL.md).
// All blocking operations (WaitReady, WriteAll, ReadExact) accept a
// context.Context; cancellation or deadline expiry surfaces as
// ErrTimeout (the context's own error, wrapped).
//
// # Error handling
//
// Every error returned by Prepare, AttachProducer, AttachConsumer,
// WaitReady, WriteAll, ReadExact, ReadSome, Open, Segment.Close and Unlink
// is an *Error carrying a Kind (see errors.go); the rendezvous, config and
// logging helpers return plain wrapped errors. On any non-timeout terminal
// error from WaitReady, WriteAll, ReadExact or ReadSome, the endpoint
// that observed it writes StatusAborted or StatusDisconnected to its own
// row before returning, so the peer's next blocking call observes the
// end of the session.
//
// # Command-line tools
//
// cmd/conduit-send and cmd/conduit-recv wire this package to the
// rendezvous bootstrap, stdin/stdout, structured logging, and Prometheus
// metrics; see their package docs for flags and configuration. They read
// and write only stdin and stdout; neither has a --file option.
package conduit
