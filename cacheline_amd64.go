// cacheline_amd64.go: platform cache-line size
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package conduit

// CacheLine is the assumed cache-line size in bytes on this platform.
const CacheLine = 64
