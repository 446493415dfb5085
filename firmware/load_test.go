package firmware

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-nvdec/memmgr"
	"github.com/moffa90/go-nvdec/memmgr/memmgrtest"
	"github.com/moffa90/go-nvdec/ucode"
)

const testName = "nvhost_nvdec010.fw"

func testImage(t *testing.T) []byte {
	t.Helper()
	image, err := ucode.Build(ucode.Spec{
		Code: make([]byte, 32),
		Data: make([]byte, 64),
	})
	require.NoError(t, err)
	return image
}

func TestLoad(t *testing.T) {
	image := testImage(t)
	mgr := memmgrtest.New()

	fw, err := Load(context.Background(), mgr, Memory{testName: image}, testName, 0)
	require.NoError(t, err)

	assert.Equal(t, testName, fw.Name)
	assert.Equal(t, len(image), fw.Size)
	assert.Equal(t, uint32(64), fw.Plan.DataSize)
	assert.Equal(t, image, fw.Buffer.Bytes()[:len(image)], "image copied into the mapping")
	assert.Equal(t, uint64(fw.Buffer.DMAAddress())+uint64(ucode.SegmentAlign), fw.DMABase())
	assert.Equal(t, []int{memmgr.DefaultPageSize}, mgr.AllocSizes)

	require.NoError(t, fw.Release())
	require.NoError(t, fw.Release())
	assert.False(t, mgr.Leaked())
}

func TestLoadUnwind(t *testing.T) {
	good := testImage(t)
	bad := append([]byte(nil), good...)
	bad[0] = 0
	misaligned := append([]byte(nil), good...)
	binary.LittleEndian.PutUint32(misaligned[0x10:], 0x110)

	tests := []struct {
		name    string
		mgr     *memmgrtest.Manager
		image   []byte
		wantErr error
		freed   int
	}{
		{"alloc fails", memmgrtest.FailAt(memmgrtest.StepAlloc), good, memmgr.ErrAllocationFailed, 0},
		{"pin fails", memmgrtest.FailAt(memmgrtest.StepPin), good, memmgr.ErrPinFailed, 1},
		{"map fails", memmgrtest.FailAt(memmgrtest.StepMap), good, memmgr.ErrMapFailed, 1},
		{"parse fails", memmgrtest.New(), bad, ucode.ErrInvalidMagic, 1},
		{"blob not chunk aligned", memmgrtest.New(), misaligned, ucode.ErrSizeInconsistency, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fw, err := Load(context.Background(), tt.mgr, Memory{testName: tt.image}, testName, 0)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, fw)
			assert.False(t, tt.mgr.Leaked())
			assert.Equal(t, tt.freed, tt.mgr.Count(memmgrtest.StepFree))
		})
	}
}

func TestLoadParseFailureReleasesInOrder(t *testing.T) {
	image := testImage(t)
	image[4] = 9 // version

	mgr := memmgrtest.New()
	_, err := Load(context.Background(), mgr, Memory{testName: image}, testName, 0)
	require.ErrorIs(t, err, ucode.ErrUnsupportedVersion)

	assert.Equal(t, []memmgrtest.Step{
		memmgrtest.StepAlloc, memmgrtest.StepPin, memmgrtest.StepMap,
		memmgrtest.StepUnmap, memmgrtest.StepUnpin, memmgrtest.StepFree,
	}, mgr.Calls)
}

func TestLoadFetchFailure(t *testing.T) {
	mgr := memmgrtest.New()

	_, err := Load(context.Background(), mgr, Memory{}, testName, 0)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, mgr.Calls, "nothing acquired before the image is fetched")

	_, err = Load(context.Background(), mgr, nil, testName, 0)
	require.Error(t, err)

	for _, image := range [][]byte{{}, {0xDE, 0x10}} {
		_, err = Load(context.Background(), mgr, Memory{testName: image}, testName, 0)
		require.ErrorIs(t, err, ucode.ErrSizeInconsistency)
		assert.NotErrorIs(t, err, memmgr.ErrAllocationFailed)
		assert.Contains(t, err.Error(), "bin header end 24 exceeds")
	}
	assert.Empty(t, mgr.Calls, "truncated images are rejected before allocation")
}

func TestLoadPadsLastChunk(t *testing.T) {
	// A page-sized image whose code segment sits in the last 32 bytes: the
	// code chunk reads a full 256 bytes from there.
	image, err := ucode.Build(ucode.Spec{
		Code: make([]byte, 32),
		Data: bytes.Repeat([]byte{0xAA}, memmgr.DefaultPageSize-2*ucode.SegmentAlign),
	})
	require.NoError(t, err)
	require.Len(t, image, memmgr.DefaultPageSize)
	binary.LittleEndian.PutUint32(image[0x40:], uint32(len(image)-ucode.SegmentAlign-32))

	mgr := memmgrtest.New()
	fw, err := Load(context.Background(), mgr, Memory{testName: image}, testName, 0)
	require.NoError(t, err)
	defer fw.Release()

	plan := fw.Plan
	codeEnd := int(plan.BinDataOffset) + int(plan.CodeOffset) + ucode.SegmentAlign
	dataEnd := int(plan.BinDataOffset) + int(plan.DataOffset) +
		memmgr.RoundUp(int(plan.DataSize), ucode.SegmentAlign)

	mapped := fw.Buffer.Bytes()
	assert.Greater(t, codeEnd, len(image))
	assert.GreaterOrEqual(t, len(mapped), codeEnd, "code chunk inside the buffer")
	assert.GreaterOrEqual(t, len(mapped), dataEnd, "last data chunk inside the buffer")
	assert.Equal(t, []int{2 * memmgr.DefaultPageSize}, mgr.AllocSizes)
	assert.Equal(t, make([]byte, len(mapped)-len(image)), mapped[len(image):], "tail is zeroed")
}
