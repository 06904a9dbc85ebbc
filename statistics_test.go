package physmem_test

import (
	"math"
	"testing"

	"github.com/kernelkit/physmem"
	"github.com/stretchr/testify/require"
)

func TestDetailedStatisticsAddFreeBlock(t *testing.T) {
	var stats physmem.DetailedStatistics
	stats.Clear()

	require.Equal(t, math.MaxInt, stats.FreeBlockPagesMin)
	require.Equal(t, 0, stats.FreeBlockPagesMax)

	stats.AddFreeBlock(0)
	stats.AddFreeBlock(3)
	stats.AddFreeBlock(3)

	require.Equal(t, 3, stats.FreeBlockCount)
	require.Equal(t, 17, stats.FreePages)
	require.Equal(t, 1, stats.FreeBlockPagesMin)
	require.Equal(t, 8, stats.FreeBlockPagesMax)
	require.Equal(t, 1, stats.FreeBlocksPerOrder[0])
	require.Equal(t, 2, stats.FreeBlocksPerOrder[3])
}

func TestDetailedStatisticsMerge(t *testing.T) {
	var first, second physmem.DetailedStatistics
	first.Clear()
	second.Clear()

	first.HeapPages = 64
	first.AllocatedPages = 10
	first.AddFreeBlock(1)

	second.HeapPages = 16
	second.AllocatedPages = 2
	second.AddFreeBlock(2)
	second.AddFreeBlock(0)

	first.AddDetailedStatistics(&second)

	require.Equal(t, physmem.Statistics{
		HeapPages:      80,
		AllocatedPages: 12,
		FreeBlockCount: 3,
		FreePages:      7,
	}, first.Statistics)
	require.Equal(t, 1, first.FreeBlockPagesMin)
	require.Equal(t, 4, first.FreeBlockPagesMax)
	require.Equal(t, 1, first.FreeBlocksPerOrder[0])
	require.Equal(t, 1, first.FreeBlocksPerOrder[1])
	require.Equal(t, 1, first.FreeBlocksPerOrder[2])
}
