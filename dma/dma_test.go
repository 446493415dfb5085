package dma

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-nvdec/poll"
	"github.com/moffa90/go-nvdec/regs"
	"github.com/moffa90/go-nvdec/regs/regstest"
	"github.com/moffa90/go-nvdec/ucode"
)

// MockLogger records messages by level.
type MockLogger struct {
	debugMsgs []string
	infoMsgs  []string
	errorMsgs []string
	errorKV   [][]interface{}
}

func (l *MockLogger) Debug(msg string, kv ...interface{}) { l.debugMsgs = append(l.debugMsgs, msg) }
func (l *MockLogger) Info(msg string, kv ...interface{})  { l.infoMsgs = append(l.infoMsgs, msg) }
func (l *MockLogger) Error(msg string, kv ...interface{}) {
	l.errorMsgs = append(l.errorMsgs, msg)
	l.errorKV = append(l.errorKV, kv)
}

type fakeSleeper struct{ total time.Duration }

func (s *fakeSleeper) Sleep(d time.Duration) { s.total += d }

// falconDMA models the DMA command register: after each command it stays
// busy for busyPolls reads, or forever if busyPolls < 0.
type falconDMA struct {
	t         *testing.T
	bus       *regstest.Bus
	layout    regs.Layout
	busyPolls int
	remaining int
	busy      bool
	commands  []uint32
	moffs     []uint32
	fboffs    []uint32
}

func newFalconDMA(t *testing.T, busyPolls int) *falconDMA {
	f := &falconDMA{t: t, bus: regstest.New(), layout: regs.DefaultLayout(), busyPolls: busyPolls}
	f.bus.OnWrite = func(off, v uint32) {
		switch off {
		case f.layout.DMATrfCmd:
			if f.busy {
				t.Errorf("command 0x%x issued while previous transfer still busy", v)
			}
			f.commands = append(f.commands, v)
			f.moffs = append(f.moffs, f.bus.Regs[f.layout.DMATrfMOffs])
			f.fboffs = append(f.fboffs, f.bus.Regs[f.layout.DMATrfFBOffs])
			f.busy = true
			f.remaining = f.busyPolls
		}
	}
	f.bus.OnRead = func(off uint32, _ int, stored uint32) uint32 {
		if off != f.layout.DMATrfCmd {
			return stored
		}
		if !f.busy {
			return stored | regs.DMACmdIdleMask
		}
		if f.remaining != 0 {
			if f.remaining > 0 {
				f.remaining--
			}
			return stored &^ regs.DMACmdIdleMask
		}
		f.busy = false
		return stored | regs.DMACmdIdleMask
	}
	return f
}

func (f *falconDMA) engine(s *fakeSleeper, log Logger) *Engine {
	return New(f.bus, f.layout, poll.Config{
		Timeout:  time.Millisecond,
		Interval: 100 * time.Microsecond,
		Sleep:    s.Sleep,
	}, log)
}

func TestChunksCoverage(t *testing.T) {
	sizes := []uint32{0, 1, 64, 255, 256, 257, 511, 512, 513, 1000, 4096, 65535}
	for n := uint32(0); n <= 1100; n += 7 {
		sizes = append(sizes, n)
	}

	for _, n := range sizes {
		plan := ucode.SegmentPlan{DataOffset: 0x300, DataSize: n, CodeOffset: 0x40, CodeSize: 32}
		chunks := Chunks(plan)

		require.NotEmpty(t, chunks)
		code := chunks[len(chunks)-1]
		assert.Equal(t, Chunk{Src: 0x40, Dst: 0, IMem: true}, code, "code chunk last, size %d", n)

		data := chunks[:len(chunks)-1]
		seen := make(map[uint32]bool)
		var next uint32
		for _, c := range data {
			require.False(t, c.IMem)
			require.False(t, seen[c.Dst], "repeat at %d for size %d", c.Dst, n)
			require.Equal(t, next, c.Dst, "gap before %d for size %d", c.Dst, n)
			require.Equal(t, plan.DataOffset+c.Dst, c.Src)
			seen[c.Dst] = true
			next += regs.ChunkSize
		}

		// Chunks cover [0, n) exactly: the last one starts inside the segment.
		want := (n + regs.ChunkSize - 1) / regs.ChunkSize
		require.Len(t, data, int(want), "size %d", n)
		if n > 0 {
			last := data[len(data)-1]
			assert.Less(t, last.Dst, n)
			assert.GreaterOrEqual(t, last.Dst+regs.ChunkSize, n)
		}
	}
}

func TestTransferChunkProgramsRegisters(t *testing.T) {
	f := newFalconDMA(t, 0)
	e := f.engine(&fakeSleeper{}, nil)

	require.NoError(t, e.TransferChunk(0x1200, 0x300, false))
	require.NoError(t, e.TransferChunk(0x40, 0, true))

	l := f.layout
	assert.Equal(t, []uint32{
		l.DMATrfMOffs, l.DMATrfFBOffs, l.DMATrfCmd,
		l.DMATrfMOffs, l.DMATrfFBOffs, l.DMATrfCmd,
	}, f.bus.WriteOffsets())
	assert.Equal(t, []uint32{0x600, 0x610}, f.commands)
	assert.Equal(t, []uint32{0x300, 0}, f.moffs)
	assert.Equal(t, []uint32{0x1200, 0x40}, f.fboffs)
}

func TestTransferChunkWaitsForIdle(t *testing.T) {
	f := newFalconDMA(t, 3)
	s := &fakeSleeper{}
	e := f.engine(s, nil)

	require.NoError(t, e.TransferChunk(0, 0, false))
	assert.Equal(t, 4, f.bus.Reads(f.layout.DMATrfCmd))
	assert.Equal(t, 300*time.Microsecond, s.total)
}

func TestTransferChunkTimeout(t *testing.T) {
	f := newFalconDMA(t, -1)
	s := &fakeSleeper{}
	log := &MockLogger{}
	e := f.engine(s, log)

	err := e.TransferChunk(0x100, 0, false)
	require.ErrorIs(t, err, ErrTimeout)

	var terr *regs.TimeoutError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "DMATRFCMD", terr.Register)
	assert.Equal(t, f.layout.DMATrfCmd, terr.Offset)
	assert.Equal(t, uint32(regs.DMACmdIdleMask), terr.Want)
	assert.Zero(t, terr.Got&regs.DMACmdIdleMask)

	assert.GreaterOrEqual(t, s.total, time.Millisecond)
	assert.LessOrEqual(t, s.total, time.Millisecond+100*time.Microsecond)
	assert.Equal(t, s.total, terr.Waited)

	require.Len(t, log.errorMsgs, 1)
	assert.Contains(t, log.errorKV[0], "DMATRFCMD")
}

func TestTransferPlan(t *testing.T) {
	f := newFalconDMA(t, 1)
	e := f.engine(&fakeSleeper{}, nil)

	plan := ucode.SegmentPlan{BinDataOffset: 0x100, CodeOffset: 0, CodeSize: 32, DataOffset: 0x100, DataSize: 600}

	var progress [][2]int
	require.NoError(t, e.TransferPlan(plan, func(done, total int) {
		progress = append(progress, [2]int{done, total})
	}))

	assert.Equal(t, []uint32{0x600, 0x600, 0x600, 0x610}, f.commands)
	assert.Equal(t, []uint32{0, 256, 512, 0}, f.moffs)
	assert.Equal(t, []uint32{0x100, 0x200, 0x300, 0}, f.fboffs)
	assert.Equal(t, [][2]int{{1, 4}, {2, 4}, {3, 4}, {4, 4}}, progress)
}

func TestTransferPlanAbortsOnTimeout(t *testing.T) {
	f := newFalconDMA(t, -1)
	e := f.engine(&fakeSleeper{}, nil)

	plan := ucode.SegmentPlan{DataOffset: 0x100, DataSize: 1024, CodeSize: 32}
	err := e.TransferPlan(plan, nil)

	require.ErrorIs(t, err, ErrTimeout)
	assert.Contains(t, err.Error(), "chunk 1/5")
	assert.Len(t, f.commands, 1, "no chunk issued after the timeout")
}

func TestSetBase(t *testing.T) {
	f := newFalconDMA(t, 0)
	e := f.engine(&fakeSleeper{}, nil)

	require.NoError(t, e.SetBase(0x8000_0100))
	assert.Equal(t, []uint32{0}, f.bus.Writes(f.layout.DMACtl))
	assert.Equal(t, []uint32{0x80_0001}, f.bus.Writes(f.layout.DMATrfBase))

	err := e.SetBase(0x8000_0010)
	require.ErrorIs(t, err, ErrUnalignedBase)
	assert.Len(t, f.bus.Writes(f.layout.DMATrfBase), 1, "nothing written for an unaligned base")
}

func TestNewPanicsOnNilBus(t *testing.T) {
	assert.Panics(t, func() { New(nil, regs.DefaultLayout(), poll.Config{}, nil) })
}
