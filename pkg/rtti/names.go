package rtti

import (
	"fmt"
	"hash/fnv"
	"sync"
)

// CName is a hashed name. Lookups in the catalog go through the hash; the
// string is kept for display.
type CName struct {
	Hash uint64
	Str  string
}

// FNV1a returns the 64-bit FNV-1a hash of s.
func FNV1a(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

// NewCName hashes s and records it in the name pool.
func NewCName(s string) CName {
	n := CName{Hash: FNV1a(s), Str: s}
	if s != "" {
		pool.add(n)
	}
	return n
}

// NameFromHash returns the CName registered for hash. Unknown hashes render
// as their hexadecimal value.
func NameFromHash(hash uint64) CName {
	if s, ok := pool.lookup(hash); ok {
		return CName{Hash: hash, Str: s}
	}
	return CName{Hash: hash, Str: fmt.Sprintf("%016x", hash)}
}

// IsEmpty reports whether the name carries no string.
func (n CName) IsEmpty() bool {
	return n.Str == ""
}

func (n CName) String() string {
	return n.Str
}

// namePool maps hashes back to their strings. Entries are never removed.
type namePool struct {
	mu    sync.RWMutex
	names map[uint64]string
}

var pool = &namePool{names: make(map[uint64]string)}

func (p *namePool) add(n CName) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.names[n.Hash] = n.Str
}

func (p *namePool) lookup(hash uint64) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.names[hash]
	return s, ok
}
