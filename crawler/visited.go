package crawler

import (
	"errors"
	"fmt"
	"os"
	"sync"

	bloom "github.com/bits-and-blooms/bloom/v3"
	"github.com/edsrzf/mmap-go"
)

// VisitedSet records the pages one crawl has already processed.
// A set belongs to exactly one Crawl call.
type VisitedSet interface {
	// VisitIfNew marks key visited and reports whether it was new.
	VisitIfNew(key string) bool
	Close() error
}

// VisitedKind selects a VisitedSet implementation.
type VisitedKind string

const (
	VisitedMemory VisitedKind = "memory"
	VisitedBloom  VisitedKind = "bloom"
)

// NewVisitedSet returns an empty set of the given kind.
func NewVisitedSet(kind VisitedKind) (VisitedSet, error) {
	switch kind {
	case VisitedMemory, "":
		return NewMemorySet(), nil
	case VisitedBloom:
		return NewBloomSet(defaultBloomCapacity, defaultBloomFalsePositive)
	default:
		return nil, fmt.Errorf("unknown visited set %q", kind)
	}
}

// MemorySet is an exact in-memory VisitedSet.
type MemorySet struct {
	seen map[string]struct{}
}

// NewMemorySet returns an empty MemorySet.
func NewMemorySet() *MemorySet {
	return &MemorySet{seen: make(map[string]struct{})}
}

func (s *MemorySet) VisitIfNew(key string) bool {
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}

func (s *MemorySet) Close() error { return nil }

const (
	defaultBloomCapacity      = 100_000
	defaultBloomFalsePositive = 0.001
	bloomSyncEvery            = 1000
)

// BloomSet is a disk-backed bloom filter for crawls too large to track
// exactly. The filter is mirrored into a memory-mapped temp file so the
// resident footprint stays flat. A false positive makes the crawl skip a page
// it never saw; there are no false negatives.
type BloomSet struct {
	mu      sync.Mutex
	filter  *bloom.BloomFilter
	file    *os.File
	mmap    mmap.MMap
	tmpPath string
	pending uint64 // keys added since last sync
	lastErr error  // last error from a periodic sync
}

// NewBloomSet sizes a filter for capacity keys at the given false positive
// rate and maps it to a temp file.
func NewBloomSet(capacity uint, falsePositive float64) (*BloomSet, error) {
	filter := bloom.NewWithEstimates(capacity, falsePositive)

	data, err := filter.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshal bloom filter: %w", err)
	}

	tmpFile, err := os.CreateTemp("", "linkwalker-visited-*.bloom")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	cleanup := func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}

	if err := tmpFile.Truncate(int64(len(data))); err != nil {
		cleanup()
		return nil, fmt.Errorf("truncate temp file: %w", err)
	}

	mapped, err := mmap.MapRegion(tmpFile, len(data), mmap.RDWR, 0, 0)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("mmap temp file: %w", err)
	}
	copy(mapped, data)

	return &BloomSet{
		filter:  filter,
		file:    tmpFile,
		mmap:    mapped,
		tmpPath: tmpPath,
	}, nil
}

func (s *BloomSet) VisitIfNew(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.filter.TestOrAddString(key) {
		return false
	}
	s.pending++
	if s.pending >= bloomSyncEvery {
		if err := s.syncLocked(); err != nil {
			s.lastErr = err
		}
	}
	return true
}

// syncLocked copies the filter into the mapping and flushes it.
// Must be called with mu held.
func (s *BloomSet) syncLocked() error {
	data, err := s.filter.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal bloom filter: %w", err)
	}
	copy(s.mmap, data)
	if err := s.mmap.Flush(); err != nil {
		return fmt.Errorf("flush mmap: %w", err)
	}
	s.pending = 0
	return nil
}

// Close flushes pending keys, unmaps the file and removes it.
func (s *BloomSet) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if s.lastErr != nil {
		errs = append(errs, s.lastErr)
	}

	if s.mmap != nil {
		if s.pending > 0 {
			if err := s.syncLocked(); err != nil {
				errs = append(errs, err)
			}
		}
		if err := s.mmap.Unmap(); err != nil {
			errs = append(errs, fmt.Errorf("unmap: %w", err))
		}
		s.mmap = nil
	}

	if s.file != nil {
		if err := s.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close file: %w", err))
		}
		s.file = nil
	}

	if s.tmpPath != "" {
		if err := os.Remove(s.tmpPath); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("remove temp file: %w", err))
		}
		s.tmpPath = ""
	}

	if len(errs) > 0 {
		return fmt.Errorf("close bloom set: %w", errors.Join(errs...))
	}
	return nil
}
