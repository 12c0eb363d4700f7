package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solstice/kernel/mem"
)

func TestIdentityAddressSpaceTranslateAddr(t *testing.T) {
	var as AddressSpace = IdentityAddressSpace{}
	pa, ok := as.TranslateAddr(0x1234)
	require.True(t, ok)
	assert.EqualValues(t, 0x1234, pa)
}

func TestIdentityAddressSpaceMapIsNoopAndFlushable(t *testing.T) {
	var as AddressSpace = IdentityAddressSpace{}
	flush, err := as.MapToWithAllocator(0x1000, 0x1000, mem.PagePresent|mem.PageWritable, nil)
	require.NoError(t, err)
	assert.NotPanics(t, flush.Flush)
}
