package physmem

import "math"

// Statistics is a summary of a buddy allocator's current bookkeeping state. All
// quantities are expressed in pages rather than bytes, so statistics from
// allocators with different page sizes should not be summed together.
type Statistics struct {
	HeapPages      int
	AllocatedPages int
	FreeBlockCount int
	FreePages      int
}

func (s *Statistics) Clear() {
	s.HeapPages = 0
	s.AllocatedPages = 0
	s.FreeBlockCount = 0
	s.FreePages = 0
}

func (s *Statistics) AddStatistics(other *Statistics) {
	s.HeapPages += other.HeapPages
	s.AllocatedPages += other.AllocatedPages
	s.FreeBlockCount += other.FreeBlockCount
	s.FreePages += other.FreePages
}

type DetailedStatistics struct {
	Statistics
	FreeBlockPagesMin  int
	FreeBlockPagesMax  int
	FreeBlocksPerOrder [MaxOrderLimit + 1]int
}

func (s *DetailedStatistics) Clear() {
	s.Statistics.Clear()
	s.FreeBlockPagesMin = math.MaxInt
	s.FreeBlockPagesMax = 0
	s.FreeBlocksPerOrder = [MaxOrderLimit + 1]int{}
}

// AddFreeBlock accounts for a single free block of the provided order.
func (s *DetailedStatistics) AddFreeBlock(order int) {
	pages := 1 << order

	s.FreeBlockCount++
	s.FreePages += pages
	s.FreeBlocksPerOrder[order]++

	if pages < s.FreeBlockPagesMin {
		s.FreeBlockPagesMin = pages
	}

	if pages > s.FreeBlockPagesMax {
		s.FreeBlockPagesMax = pages
	}
}

func (s *DetailedStatistics) AddDetailedStatistics(other *DetailedStatistics) {
	s.Statistics.AddStatistics(&other.Statistics)

	for order := 0; order < len(s.FreeBlocksPerOrder); order++ {
		s.FreeBlocksPerOrder[order] += other.FreeBlocksPerOrder[order]
	}

	if other.FreeBlockPagesMin < s.FreeBlockPagesMin {
		s.FreeBlockPagesMin = other.FreeBlockPagesMin
	}

	if other.FreeBlockPagesMax > s.FreeBlockPagesMax {
		s.FreeBlockPagesMax = other.FreeBlockPagesMax
	}
}
