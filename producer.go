// producer.go: stream writer endpoint
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package conduit

import "context"

// Producer is the write side of a stream. It is not safe for concurrent
// use by more than one goroutine.
type Producer struct {
	header *headerView
	data   []byte
	length uint64
	cfg    *endpointConfig

	bytesWritten    uint64
	cachedPeerCount uint64

	own  *row
	peer *row
}

// AttachProducer installs the producer endpoint on base and publishes its
// presence (StatusProducerReady). base's own header row must be all-zero
// (see Prepare); attaching to an in-use segment fails with
// ErrHeaderNotPrepared.
func AttachProducer(base []byte, opts ...Option) (*Producer, error) {
	h, err := newHeaderView(base)
	if err != nil {
		return nil, err
	}

	own := h.producerRow()
	if own.loadStatus() != 0 || own.loadLength() != 0 || own.loadCount() != 0 {
		return nil, ErrHeaderNotPrepared
	}

	length := uint64(len(base))
	producerAttach(h, length)

	return &Producer{
		header: h,
		data:   h.dataArea(),
		length: length,
		cfg:    newEndpointConfig(opts),
		own:    own,
		peer:   h.consumerRow(),
	}, nil
}

// WaitReady blocks until the handshake completes (the consumer has also
// attached and both sides agree on geometry) or ctx ends.
func (p *Producer) WaitReady(ctx context.Context) error {
	done := observeHandshakeStart()
	defer done()
	return p.cfg.report("wait_ready", producerWaitReady(ctx, p.header, p.length))
}

// WriteAll writes every byte of buf, blocking when the ring is full. It
// fails with ErrPeerDisconnected if the consumer's row stops reporting
// StatusStreaming, and with a Timeout-kind *Error if ctx ends first. On
// any failure other than a timeout it marks its own row Aborted before
// returning.
func (p *Producer) WriteAll(ctx context.Context, buf []byte) error {
	for len(buf) > 0 {
		window, err := p.contiguousWriteSlice(ctx)
		if err != nil {
			if e, ok := err.(*Error); !ok || e.Kind != KindTimeout {
				p.abort()
			}
			return p.cfg.report("write_all", err)
		}

		n := len(window)
		if n > len(buf) {
			n = len(buf)
		}
		copy(window[:n], buf[:n])
		p.wrote(uint64(n))
		buf = buf[n:]
	}
	return nil
}

// dataLen is D, the length of the ring.
func (p *Producer) dataLen() uint64 { return uint64(len(p.data)) }

// freeSpace is the number of bytes the producer may write before it must
// re-check the consumer's count, computed from the cached peer count.
func (p *Producer) freeSpace() uint64 {
	return p.dataLen() - (p.bytesWritten - p.cachedPeerCount)
}

// contiguousWriteSlice returns a non-empty, contiguous slice of free ring
// space to write into, refreshing and waiting on the cached peer count as
// needed. It never returns an empty slice without an error.
func (p *Producer) contiguousWriteSlice(ctx context.Context) ([]byte, error) {
	if p.freeSpace() == 0 {
		if err := p.checkPeerAlive(); err != nil {
			return nil, err
		}
		p.refreshCache()

		if p.freeSpace() == 0 {
			if err := p.waitForSpace(ctx); err != nil {
				return nil, err
			}
		}
	}

	start := p.bytesWritten % p.dataLen()
	end := start + p.freeSpace()
	if end > p.dataLen() {
		end = p.dataLen()
	}
	return p.data[start:end], nil
}

func (p *Producer) refreshCache() {
	p.cachedPeerCount = p.peer.loadCount()
}

// checkPeerAlive fails a write with PeerDisconnected as soon as the
// consumer's row is no longer Streaming, per SPEC_FULL.md §4.5: unlike
// the consumer side, the producer has no "graceful end" outcome, since
// there is no peer left to receive the bytes it still wants to write.
func (p *Producer) checkPeerAlive() error {
	v := p.peer.loadStatus()
	if v == StatusStreaming {
		return nil
	}
	if err := validateStatus(v); err != nil {
		return err
	}
	return ErrPeerDisconnected
}

func (p *Producer) waitForSpace(ctx context.Context) error {
	known := p.cachedPeerCount
	err := spinThenWait(ctx, func() bool {
		p.cachedPeerCount = p.peer.loadCount()
		if p.cachedPeerCount != known {
			return true
		}
		return p.peer.loadStatus() != StatusStreaming
	})
	if err != nil {
		return timeoutError(err)
	}
	return p.checkPeerAlive()
}

// wrote publishes that n more bytes have been written: the local counter
// and the published row counter are updated together so they never
// disagree after this call returns.
func (p *Producer) wrote(n uint64) {
	p.bytesWritten += n
	p.own.storeCount(p.bytesWritten)
	metricBytesProduced.Add(float64(n))
}

// abort marks this endpoint's row Aborted, so the peer observes the end
// of the session as PeerDisconnected on its next load. Reserved for an
// abrupt, non-timeout termination of this endpoint; a blocked call whose
// context merely times out must not call this (the caller may retry).
func (p *Producer) abort() {
	p.own.storeStatus(StatusAborted)
}

// Close marks this endpoint Disconnected, a graceful close distinct from
// abort. It does not unmap or unlink the underlying segment; see Segment.
func (p *Producer) Close() {
	p.own.storeStatus(StatusDisconnected)
}
