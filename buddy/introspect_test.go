package buddy_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/kernelkit/physmem"
	mock_buddy "github.com/kernelkit/physmem/buddy/mocks"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/exp/slog"
)

func TestVisitFreeBlocks(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	alloc := newTestAllocator(t, 16, 3)

	visitor := mock_buddy.NewMockFreeBlockVisitor(ctrl)
	gomock.InOrder(
		visitor.EXPECT().VisitFreeBlock(testHeapBegin, 3).Return(nil),
		visitor.EXPECT().VisitFreeBlock(testHeapBegin+page(8), 3).Return(nil),
	)

	require.NoError(t, alloc.VisitFreeBlocks(visitor))
}

func TestVisitFreeBlocksStopsOnError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	alloc := newTestAllocator(t, 16, 3)

	// the walk must end at the first error, so the second free block is
	// never visited
	visitErr := errors.New("visit failed")
	visitor := mock_buddy.NewMockFreeBlockVisitor(ctrl)
	visitor.EXPECT().VisitFreeBlock(testHeapBegin, 3).Return(visitErr)

	require.ErrorIs(t, alloc.VisitFreeBlocks(visitor), visitErr)
}

func TestAllocatorStatistics(t *testing.T) {
	alloc := newTestAllocator(t, 16, 3)

	var stats physmem.DetailedStatistics
	stats.Clear()
	alloc.AddDetailedStatistics(&stats)

	expectedFresh := physmem.DetailedStatistics{
		Statistics: physmem.Statistics{
			HeapPages:      16,
			AllocatedPages: 0,
			FreeBlockCount: 2,
			FreePages:      16,
		},
		FreeBlockPagesMin: 8,
		FreeBlockPagesMax: 8,
	}
	expectedFresh.FreeBlocksPerOrder[3] = 2
	require.Equal(t, expectedFresh, stats)

	addr, err := alloc.Alloc(0)
	require.NoError(t, err)

	stats.Clear()
	alloc.AddDetailedStatistics(&stats)

	expectedSplit := physmem.DetailedStatistics{
		Statistics: physmem.Statistics{
			HeapPages:      16,
			AllocatedPages: 1,
			FreeBlockCount: 4,
			FreePages:      15,
		},
		FreeBlockPagesMin: 1,
		FreeBlockPagesMax: 8,
	}
	expectedSplit.FreeBlocksPerOrder[0] = 1
	expectedSplit.FreeBlocksPerOrder[1] = 1
	expectedSplit.FreeBlocksPerOrder[2] = 1
	expectedSplit.FreeBlocksPerOrder[3] = 1
	require.Equal(t, expectedSplit, stats)

	alloc.Free(addr, 0)

	stats.Clear()
	alloc.AddDetailedStatistics(&stats)
	require.Equal(t, expectedFresh, stats)

	var plain physmem.Statistics
	plain.Clear()
	alloc.AddStatistics(&plain)
	require.Equal(t, expectedFresh.Statistics, plain)
}

func TestStatisticsClearResetsExtremes(t *testing.T) {
	alloc := newTestAllocator(t, 16, 3)

	// drain the heap so there are no free blocks at all
	addr, err := alloc.Alloc(3)
	require.NoError(t, err)
	addr2, err := alloc.Alloc(3)
	require.NoError(t, err)

	var stats physmem.DetailedStatistics
	stats.Clear()
	alloc.AddDetailedStatistics(&stats)

	require.Equal(t, 0, stats.FreeBlockCount)
	require.Equal(t, math.MaxInt, stats.FreeBlockPagesMin)
	require.Equal(t, 0, stats.FreeBlockPagesMax)

	alloc.Free(addr, 3)
	alloc.Free(addr2, 3)
}

func TestBuildStatsString(t *testing.T) {
	alloc := newTestAllocator(t, 16, 3)

	addr, err := alloc.Alloc(1)
	require.NoError(t, err)

	var parsed struct {
		HeapBegin      string
		HeapEnd        string
		PageSize       int
		MaxOrder       int
		HeapPages      int
		AllocatedPages int
		FreeBlocks     []struct {
			Addr  string
			Order int
			Pages int
		}
		Leases []struct {
			Addr  string
			Order int
		}
	}
	require.NoError(t, json.Unmarshal([]byte(alloc.BuildStatsString()), &parsed))

	require.Equal(t, "0x100000", parsed.HeapBegin)
	require.Equal(t, "0x110000", parsed.HeapEnd)
	require.Equal(t, testPageSize, parsed.PageSize)
	require.Equal(t, 3, parsed.MaxOrder)
	require.Equal(t, 16, parsed.HeapPages)
	require.Equal(t, 2, parsed.AllocatedPages)
	require.Len(t, parsed.Leases, 1)
	require.Equal(t, 1, parsed.Leases[0].Order)

	freePages := 0
	for _, b := range parsed.FreeBlocks {
		freePages += b.Pages
	}
	require.Equal(t, 14, freePages)

	alloc.Free(addr, 1)
}

func TestDebugLogAllAllocations(t *testing.T) {
	alloc := newTestAllocator(t, 16, 3)

	first, err := alloc.Alloc(0)
	require.NoError(t, err)
	second, err := alloc.Alloc(2)
	require.NoError(t, err)

	visited := make(map[physmem.PageAddr]int)
	alloc.DebugLogAllAllocations(slog.Default(), func(log *slog.Logger, addr physmem.PageAddr, order int) {
		visited[addr] = order
	})

	require.Equal(t, map[physmem.PageAddr]int{
		first:  0,
		second: 2,
	}, visited)
}
