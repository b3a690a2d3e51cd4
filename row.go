// row.go: header layout, cache-line-isolated rows, atomic field access
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package conduit

import (
	"unsafe"
)

// Status codes carried in a row's status word. ProducerReady through
// Streaming are the handshake path; Aborted and Disconnected are terminal.
const (
	StatusProducerReady     uint64 = 0
	StatusConsumerAlsoReady uint64 = 1
	StatusStreaming         uint64 = 2
	StatusAborted           uint64 = 3
	StatusDisconnected      uint64 = 4
)

// row is the in-memory layout of one endpoint's control record: three
// 8-byte atomic words followed by padding out to CacheLine. Only fixed
// scalar fields are allowed here, since the struct is overlaid on raw
// shared memory; the compile-time assertion below checks its total size.
type row struct {
	status uint64
	length uint64
	count  uint64
	_      [CacheLine - 3*8]byte
}

// Compile-time assertion that row is no larger than one cache line.
// unsafe.Sizeof yields a uintptr constant, so if row outgrows CacheLine
// this difference is negative, overflows uintptr, and fails to compile.
// The padding above sizes row to exactly CacheLine.
const _ = CacheLine - unsafe.Sizeof(row{})

// header is the fixed layout at the start of every segment: the producer's
// row followed by the consumer's row, in that order, per the wire layout
// in SPEC_FULL.md §6.
type header struct {
	producer row
	consumer row
}

// HeaderSize is sizeof(header) in bytes: 2 * CacheLine.
const HeaderSize = 2 * CacheLine

// headerView overlays a header onto the first HeaderSize bytes of a
// mapped segment. It never hands out two mutable references to the same
// row: producerRow/consumerRow return pointers, and callers are expected
// to respect the discipline that each endpoint only ever stores through
// its own row and only ever loads through the peer's.
type headerView struct {
	base []byte
}

func newHeaderView(base []byte) (*headerView, error) {
	if len(base) < HeaderSize {
		return nil, newError(KindSegmentTooSmall, "segment length %d smaller than header size %d", len(base), HeaderSize)
	}
	return &headerView{base: base}, nil
}

func (h *headerView) header() *header {
	return (*header)(unsafe.Pointer(&h.base[0]))
}

func (h *headerView) producerRow() *row {
	return &h.header().producer
}

func (h *headerView) consumerRow() *row {
	return &h.header().consumer
}

// dataArea returns the bytes of the segment after the header: the ring.
func (h *headerView) dataArea() []byte {
	return h.base[HeaderSize:]
}

// Prepare zeroes exactly the header bytes of base, leaving the data area
// untouched. Calling it more than once before either endpoint attaches is
// permitted and leaves the header all-zero; calling it after an endpoint
// has attached fails with ErrHeaderInUse rather than silently clobbering
// that endpoint's published state. A row counts as attached when it holds
// a non-zero length together with one of the five valid status codes;
// any other header contents are zeroed.
func Prepare(base []byte) error {
	h, err := newHeaderView(base)
	if err != nil {
		return err
	}
	if headerInUse(h) {
		return ErrHeaderInUse
	}
	clear(base[:HeaderSize])
	return nil
}

func headerInUse(h *headerView) bool {
	for _, r := range []*row{h.producerRow(), h.consumerRow()} {
		if r.loadLength() != 0 && validateStatus(r.loadStatus()) == nil {
			return true
		}
	}
	return false
}

// The following accessors go through atomics.go's loadUint64/storeUint64/
// casUint64 rather than sync/atomic's typed atomic.Uint64, because row
// overlays raw mmap'd memory: sync/atomic's struct types make no guarantee
// about matching the bit layout of a bare uint64 when address-cast from raw
// bytes, whereas *uint64 + the package-level atomic functions are defined
// purely in terms of the pointed-to word and are exactly what every
// raw-pointer-atomics example in the retrieval pack uses (see
// other_examples' feeder-shm-seqlock.go).

func (r *row) statusPtr() *uint64 { return &r.status }
func (r *row) lengthPtr() *uint64 { return &r.length }
func (r *row) countPtr() *uint64  { return &r.count }

func (r *row) loadStatus() uint64   { return loadUint64(r.statusPtr()) }
func (r *row) storeStatus(v uint64) { storeUint64(r.statusPtr(), v) }
func (r *row) casStatus(old, new uint64) bool {
	return casUint64(r.statusPtr(), old, new)
}

func (r *row) loadLength() uint64   { return loadUint64(r.lengthPtr()) }
func (r *row) storeLength(v uint64) { storeUint64(r.lengthPtr(), v) }

func (r *row) loadCount() uint64   { return loadUint64(r.countPtr()) }
func (r *row) storeCount(v uint64) { storeUint64(r.countPtr(), v) }
