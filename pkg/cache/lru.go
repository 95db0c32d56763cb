// Package cache keeps recent conversion results in memory. Values are stored
// LZ4-compressed and evicted by size, least valuable first.
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/pierrec/lz4/v4"

	"github.com/Sumatoshi-tech/vuesetup/pkg/safeconv"
)

// DefaultMaxSize is the default compressed capacity (64 MB).
const DefaultMaxSize = 64 * 1024 * 1024

const (
	bytesPerKB = 1024.0

	// evictionSampleSize is how many entries from the LRU tail compete for
	// eviction.
	evictionSampleSize = 5
)

var errCorrupt = errors.New("cache: corrupt entry")

// Key identifies one cached value.
type Key [sha256.Size]byte

// NewKey hashes the given parts into a key. Parts are length-prefixed so
// that different splits of the same bytes never collide.
func NewKey(parts ...[]byte) Key {
	h := sha256.New()

	var size [8]byte

	for _, p := range parts {
		binary.LittleEndian.PutUint64(size[:], uint64(len(p)))
		h.Write(size[:])
		h.Write(p)
	}

	var k Key

	copy(k[:], h.Sum(nil))

	return k
}

// String returns the hex form of the key.
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// LRU is a size-bounded cache of compressed byte values.
type LRU struct {
	mu          sync.Mutex
	entries     map[Key]*lruEntry
	head        *lruEntry // Most recently used.
	tail        *lruEntry // Least recently used.
	maxSize     int64
	currentSize int64

	hits   atomic.Int64
	misses atomic.Int64
}

type lruEntry struct {
	key         Key
	data        []byte
	rawSize     int
	accessCount int64
	prev        *lruEntry
	next        *lruEntry
}

func (e *lruEntry) size() int64 {
	return int64(len(e.data))
}

// evictionCost is the access count per KB; lower goes first.
func (e *lruEntry) evictionCost() float64 {
	sizeKB := float64(e.size()) / bytesPerKB
	if sizeKB < 1 {
		sizeKB = 1
	}

	return float64(e.accessCount) / sizeKB
}

// New returns a cache holding up to maxSize compressed bytes.
func New(maxSize int64) *LRU {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	return &LRU{entries: make(map[Key]*lruEntry), maxSize: maxSize}
}

// Get returns a copy of the value stored under key.
func (c *LRU) Get(key Key) ([]byte, bool) {
	c.mu.Lock()

	entry, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		c.misses.Add(1)

		return nil, false
	}

	entry.accessCount++
	c.moveToFront(entry)

	data, rawSize := entry.data, entry.rawSize
	c.mu.Unlock()

	value, err := decompress(data, rawSize)
	if err != nil {
		c.misses.Add(1)

		return nil, false
	}

	c.hits.Add(1)

	return value, true
}

// Put stores value under key. Values larger than the whole cache are
// dropped.
func (c *LRU) Put(key Key, value []byte) {
	data := compress(value)

	size := int64(len(data))
	if size > c.maxSize {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		c.currentSize += size - entry.size()
		entry.data, entry.rawSize = data, len(value)
		entry.accessCount++
		c.moveToFront(entry)
	} else {
		entry = &lruEntry{key: key, data: data, rawSize: len(value), accessCount: 1}
		c.entries[key] = entry
		c.currentSize += size
		c.addToFront(entry)
	}

	for c.currentSize > c.maxSize && c.tail != nil {
		c.evictLowestCost()
	}
}

// Stats holds cache counters.
type Stats struct {
	Hits        int64
	Misses      int64
	Entries     int
	CurrentSize int64
	MaxSize     int64
}

// HitRate returns hits over lookups, or zero before any lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}

	return float64(s.Hits) / float64(total)
}

// String renders the stats for humans.
func (s Stats) String() string {
	return fmt.Sprintf("%d entries, %s / %s, %.0f%% hits",
		s.Entries,
		humanize.Bytes(safeconv.ClampToUint64(s.CurrentSize)),
		humanize.Bytes(safeconv.ClampToUint64(s.MaxSize)),
		s.HitRate()*100)
}

// Stats returns a snapshot of the counters.
func (c *LRU) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Entries:     len(c.entries),
		CurrentSize: c.currentSize,
		MaxSize:     c.maxSize,
	}
}

// Clear drops every entry.
func (c *LRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[Key]*lruEntry)
	c.head = nil
	c.tail = nil
	c.currentSize = 0
}

func (c *LRU) moveToFront(entry *lruEntry) {
	if entry == c.head {
		return
	}

	c.removeFromList(entry)
	c.addToFront(entry)
}

func (c *LRU) addToFront(entry *lruEntry) {
	entry.prev = nil
	entry.next = c.head

	if c.head != nil {
		c.head.prev = entry
	}

	c.head = entry

	if c.tail == nil {
		c.tail = entry
	}
}

func (c *LRU) removeFromList(entry *lruEntry) {
	if entry.prev != nil {
		entry.prev.next = entry.next
	} else {
		c.head = entry.next
	}

	if entry.next != nil {
		entry.next.prev = entry.prev
	} else {
		c.tail = entry.prev
	}
}

// evictLowestCost removes the cheapest of the last few entries.
func (c *LRU) evictLowestCost() {
	var victim *lruEntry

	entry := c.tail
	for range evictionSampleSize {
		if entry == nil {
			break
		}

		if victim == nil || entry.evictionCost() < victim.evictionCost() {
			victim = entry
		}

		entry = entry.prev
	}

	if victim == nil {
		return
	}

	c.removeFromList(victim)
	delete(c.entries, victim.key)
	c.currentSize -= victim.size()
}

// compress returns an LZ4 block, or the value itself when it does not
// shrink. The flag byte in front tells the two apart.
func compress(value []byte) []byte {
	buf := make([]byte, 1+lz4.CompressBlockBound(len(value)))

	n, err := lz4.CompressBlock(value, buf[1:], nil)
	if err != nil || n == 0 || n >= len(value) {
		out := make([]byte, 1+len(value))
		copy(out[1:], value)

		return out
	}

	buf[0] = 1

	return buf[:1+n]
}

func decompress(data []byte, rawSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, errCorrupt
	}

	if data[0] == 0 {
		return append([]byte(nil), data[1:]...), nil
	}

	out := make([]byte, rawSize)

	n, err := lz4.UncompressBlock(data[1:], out)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errCorrupt, err)
	}

	if n != rawSize {
		return nil, errCorrupt
	}

	return out, nil
}
