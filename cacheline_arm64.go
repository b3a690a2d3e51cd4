// cacheline_arm64.go: platform cache-line size
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package conduit

// CacheLine is 128 bytes on arm64: Apple Silicon and some server-class
// arm64 parts use a 128-byte line (or pair two 64-byte lines under false
// sharing as if they were one), so we assume the wider value here.
const CacheLine = 128
