// cacheline_other.go: platform cache-line size fallback
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

//go:build !amd64 && !arm64

package conduit

// CacheLine is 64 bytes on every other target architecture we know of.
const CacheLine = 64
