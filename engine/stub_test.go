package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-nvdec/firmware"
	"github.com/moffa90/go-nvdec/regs"
	"github.com/moffa90/go-nvdec/regs/regstest"
	"github.com/moffa90/go-nvdec/ucode"
)

const testFirmware = "nvhost_nvdec010.fw"

// MockLogger records messages by level.
type MockLogger struct {
	debugMsgs []string
	infoMsgs  []string
	errorMsgs []string
}

func (l *MockLogger) Debug(msg string, kv ...interface{}) {
	l.debugMsgs = append(l.debugMsgs, msg)
}

func (l *MockLogger) Info(msg string, kv ...interface{}) {
	l.infoMsgs = append(l.infoMsgs, msg)
}

func (l *MockLogger) Error(msg string, kv ...interface{}) {
	l.errorMsgs = append(l.errorMsgs, msg)
}

// stubFalcon answers the DMA idle and boot idle polls. Each DMA command
// stays busy for dmaPolls reads and the falcon stays out of idle for
// bootPolls reads after the start pulse. A negative count never finishes.
type stubFalcon struct {
	bus    *regstest.Bus
	layout regs.Layout

	dmaPolls  int
	bootPolls int

	commands []uint32
	dmaLeft  int
	dmaBusy  bool
	started  bool
	bootLeft int
}

func newStubFalcon(dmaPolls, bootPolls int) *stubFalcon {
	f := &stubFalcon{
		bus:       regstest.New(),
		layout:    regs.DefaultLayout(),
		dmaPolls:  dmaPolls,
		bootPolls: bootPolls,
	}

	f.bus.OnWrite = func(off, v uint32) {
		switch off {
		case f.layout.DMATrfCmd:
			f.commands = append(f.commands, v)
			f.dmaBusy = true
			f.dmaLeft = f.dmaPolls
		case f.layout.CPUCtl:
			if v&regs.CPUCtlStartCPU != 0 {
				f.started = true
				f.bootLeft = f.bootPolls
			}
		}
	}

	f.bus.OnRead = func(off uint32, _ int, stored uint32) uint32 {
		switch off {
		case f.layout.DMATrfCmd:
			if f.dmaBusy && countdown(&f.dmaLeft) {
				return stored &^ regs.DMACmdIdleMask
			}
			f.dmaBusy = false
			return stored | regs.DMACmdIdleMask
		case f.layout.IdleState:
			if !f.started || countdown(&f.bootLeft) {
				return 1
			}
			return 0
		}
		return stored
	}
	return f
}

// countdown reports whether the counter is still running, consuming one
// step. Negative counters never finish.
func countdown(n *int) bool {
	switch {
	case *n < 0:
		return true
	case *n == 0:
		return false
	default:
		*n--
		return true
	}
}

type fakeSleeper struct{ total time.Duration }

func (s *fakeSleeper) Sleep(d time.Duration) { s.total += d }

// testImage is a container with a 64-byte data segment and a 32-byte code
// segment.
func testImage(t *testing.T) []byte {
	t.Helper()
	code := make([]byte, 32)
	data := make([]byte, 64)
	for i := range code {
		code[i] = byte(0xC0 + i)
	}
	for i := range data {
		data[i] = byte(i)
	}
	image, err := ucode.Build(ucode.Spec{Code: code, Data: data})
	require.NoError(t, err)
	return image
}

func testSource(t *testing.T) firmware.Memory {
	return firmware.Memory{testFirmware: testImage(t)}
}

// offsetsAfter returns the write offsets logged after the last write to
// offset.
func offsetsAfter(bus *regstest.Bus, offset uint32) []uint32 {
	all := bus.WriteOffsets()
	last := -1
	for i, off := range all {
		if off == offset {
			last = i
		}
	}
	return all[last+1:]
}
