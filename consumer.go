// consumer.go: stream reader endpoint
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package conduit

import "context"

// Consumer is the read side of a stream. It is not safe for concurrent
// use by more than one goroutine.
type Consumer struct {
	header *headerView
	data   []byte
	length uint64
	cfg    *endpointConfig

	bytesRead       uint64
	cachedPeerCount uint64

	own  *row
	peer *row
}

// AttachConsumer installs the consumer endpoint on base and attempts the
// CAS step of the handshake (ConsumerAlsoReady). base's own header row
// must be all-zero; attaching to an in-use segment fails with
// ErrHeaderNotPrepared.
func AttachConsumer(base []byte, opts ...Option) (*Consumer, error) {
	h, err := newHeaderView(base)
	if err != nil {
		return nil, err
	}

	own := h.consumerRow()
	if own.loadStatus() != 0 || own.loadLength() != 0 || own.loadCount() != 0 {
		return nil, ErrHeaderNotPrepared
	}

	length := uint64(len(base))
	if err := consumerAttach(h, length); err != nil {
		return nil, err
	}

	return &Consumer{
		header: h,
		data:   h.dataArea(),
		length: length,
		cfg:    newEndpointConfig(opts),
		own:    own,
		peer:   h.producerRow(),
	}, nil
}

// WaitReady blocks until the handshake completes (status reaches
// Streaming) or ctx ends.
func (c *Consumer) WaitReady(ctx context.Context) error {
	done := observeHandshakeStart()
	defer done()
	return c.cfg.report("wait_ready", consumerWaitReady(ctx, c.header, c.length))
}

// ReadExact fills buf completely, blocking on an empty ring. It returns
// ErrEnded if the producer closes gracefully with no more data
// outstanding, or ErrPeerDisconnected if it aborts.
func (c *Consumer) ReadExact(ctx context.Context, buf []byte) error {
	for len(buf) > 0 {
		n, err := c.readSome(ctx, buf)
		if err != nil {
			return err
		}
		buf = buf[n:]
	}
	return nil
}

// ReadSome returns as many bytes as are currently contiguous in buf,
// blocking only while the ring is empty. It never returns (0, nil); a
// read of zero bytes is always accompanied by a non-nil error (Ended or
// PeerDisconnected).
func (c *Consumer) ReadSome(ctx context.Context, buf []byte) (int, error) {
	return c.readSome(ctx, buf)
}

// readSome marks this endpoint's own row Disconnected when the stream has
// ended, and Aborted on any other failure except a timeout.
func (c *Consumer) readSome(ctx context.Context, buf []byte) (int, error) {
	window, err := c.contiguousReadSlice(ctx)
	if err != nil {
		if e, ok := err.(*Error); ok && e.Kind == KindEnded {
			c.Close()
		} else if !ok || e.Kind != KindTimeout {
			c.abort()
		}
		return 0, c.cfg.report("read", err)
	}

	n := len(window)
	if n > len(buf) {
		n = len(buf)
	}
	copy(buf[:n], window[:n])
	c.read(uint64(n))
	return n, nil
}

func (c *Consumer) dataLen() uint64 { return uint64(len(c.data)) }

// available is the number of unread bytes the consumer may currently
// copy out, computed from the cached producer count.
func (c *Consumer) available() uint64 {
	return c.cachedPeerCount - c.bytesRead
}

// contiguousReadSlice returns a non-empty, contiguous slice of unread
// ring bytes, refreshing and waiting on the cached peer count as needed.
func (c *Consumer) contiguousReadSlice(ctx context.Context) ([]byte, error) {
	if c.available() == 0 {
		c.refreshCache()

		if c.available() == 0 {
			if err := c.waitForData(ctx); err != nil {
				return nil, err
			}
		}
	}

	start := c.bytesRead % c.dataLen()
	end := start + c.available()
	if end > c.dataLen() {
		end = c.dataLen()
	}
	return c.data[start:end], nil
}

func (c *Consumer) refreshCache() {
	c.cachedPeerCount = c.peer.loadCount()
}

// endStatus reports the terminal condition implied by the peer's current
// status when no data is outstanding: Ended for a graceful close,
// PeerDisconnected for an abort.
func (c *Consumer) endStatus() error {
	v := c.peer.loadStatus()
	switch v {
	case StatusDisconnected:
		return ErrEnded
	case StatusAborted:
		return ErrPeerDisconnected
	default:
		if err := validateStatus(v); err != nil {
			return err
		}
		return ErrPeerDisconnected
	}
}

func (c *Consumer) waitForData(ctx context.Context) error {
	known := c.cachedPeerCount
	err := spinThenWait(ctx, func() bool {
		c.cachedPeerCount = c.peer.loadCount()
		if c.cachedPeerCount != known {
			return true
		}
		return c.peer.loadStatus() != StatusStreaming
	})
	if err != nil {
		return timeoutError(err)
	}

	if c.available() == 0 {
		return c.endStatus()
	}
	return nil
}

// read publishes that n more bytes have been read: the local counter and
// the published row counter are updated together so they never disagree
// after this call returns. Per the ordering rule in SPEC_FULL.md §4.6,
// the payload copy in readSome happens before this call, and the cached
// peer count used to size the read was itself loaded with an acquire
// (sync/atomic's LoadUint64) before the copy.
func (c *Consumer) read(n uint64) {
	c.bytesRead += n
	c.own.storeCount(c.bytesRead)
	metricBytesConsumed.Add(float64(n))
}

// abort marks this endpoint's row Aborted, so the peer observes the end
// of the session as PeerDisconnected on its next load. Reserved for an
// abrupt, non-timeout termination of this endpoint; a blocked call whose
// context merely times out must not call this (the caller may retry).
func (c *Consumer) abort() {
	c.own.storeStatus(StatusAborted)
}

// Close marks this endpoint Disconnected, a graceful close distinct from
// abort. It does not unmap or unlink the underlying segment; see Segment.
func (c *Consumer) Close() {
	c.own.storeStatus(StatusDisconnected)
}
