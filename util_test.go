package physmem_test

import (
	"testing"

	"github.com/kernelkit/physmem"
	"github.com/stretchr/testify/require"
)

func TestCheckPow2(t *testing.T) {
	require.NoError(t, physmem.CheckPow2(uint(1), "value"))
	require.NoError(t, physmem.CheckPow2(uint(4096), "value"))

	err := physmem.CheckPow2(uint(3000), "value")
	require.ErrorIs(t, err, physmem.PowerOfTwoError)
	require.ErrorContains(t, err, "value is 3000")

	require.ErrorIs(t, physmem.CheckPow2(uint(0), "value"), physmem.PowerOfTwoError)
}

func TestAlignUp(t *testing.T) {
	require.Equal(t, physmem.PageAddr(0), physmem.AlignUp(physmem.PageAddr(0), 4096))
	require.Equal(t, physmem.PageAddr(4096), physmem.AlignUp(physmem.PageAddr(1), 4096))
	require.Equal(t, physmem.PageAddr(4096), physmem.AlignUp(physmem.PageAddr(4096), 4096))
	require.Equal(t, physmem.PageAddr(8192), physmem.AlignUp(physmem.PageAddr(4097), 4096))
}

func TestAlignDown(t *testing.T) {
	require.Equal(t, physmem.PageAddr(0), physmem.AlignDown(physmem.PageAddr(4095), 4096))
	require.Equal(t, physmem.PageAddr(4096), physmem.AlignDown(physmem.PageAddr(4096), 4096))
	require.Equal(t, physmem.PageAddr(4096), physmem.AlignDown(physmem.PageAddr(8191), 4096))
}
