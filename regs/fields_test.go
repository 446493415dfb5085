package regs

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDMATrfCmdF(t *testing.T) {
	assert.Equal(t, uint32(0x600), DMATrfCmdF(false))
	assert.Equal(t, uint32(0x610), DMATrfCmdF(true))
}

func TestDMATrfCmdIdleV(t *testing.T) {
	tests := []struct {
		raw  uint32
		want uint32
	}{
		{0x0, 0},
		{0x2, DMACmdIdleTrue},
		{0x612, DMACmdIdleTrue},
		{0x610, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DMATrfCmdIdleV(tt.raw), "raw 0x%x", tt.raw)
	}
}

func TestOffsetEncoders(t *testing.T) {
	assert.Equal(t, uint32(0x1234), DMATrfMOffsF(0xabc1234))
	assert.Equal(t, uint32(0xabc1234), DMATrfFBOffsF(0xabc1234))
	assert.Equal(t, uint32(0x123456), DMATrfBaseF(0x12345600))
	assert.Equal(t, uint32(0), BootVecF(0))
}

func TestIRQMask(t *testing.T) {
	mask := IRQMask()
	assert.Equal(t, uint32(0xff00), mask&0xff00, "all external lines")
	for _, bit := range []uint32{IRQSwgen0, IRQSwgen1, IRQExterr, IRQHalt, IRQWdtmr} {
		assert.NotZero(t, mask&bit)
	}
	assert.Zero(t, mask&(1<<0), "general purpose timer stays masked")
	assert.Equal(t, mask, IRQHostDest())
	assert.Equal(t, uint32(0x3), ITFEnable())
}

func TestTimeoutError(t *testing.T) {
	sentinel := errors.New("dma timeout")
	err := &TimeoutError{
		Register: "DMATRFCMD",
		Offset:   0x1118,
		Mask:     DMACmdIdleMask,
		Want:     DMACmdIdleMask,
		Got:      0x600,
		Waited:   time.Second,
		Err:      sentinel,
	}

	assert.ErrorIs(t, err, sentinel)
	msg := err.Error()
	for _, want := range []string{"DMATRFCMD", "0x1118", "0x00000600", "1s"} {
		assert.True(t, strings.Contains(msg, want), "message %q lacks %q", msg, want)
	}
}
