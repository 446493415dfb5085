package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/moffa90/go-nvdec/firmware"
	"github.com/moffa90/go-nvdec/memmgr/memmgrtest"
	"github.com/moffa90/go-nvdec/ucode"
)

type DriverSuite struct {
	suite.Suite

	mgr    *memmgrtest.Manager
	src    firmware.Memory
	falcon *stubFalcon
	dev    Device
	driver *Driver
}

func (s *DriverSuite) SetupTest() {
	image, err := ucode.Build(ucode.Spec{Code: make([]byte, 32), Data: make([]byte, 300)})
	s.Require().NoError(err)

	s.mgr = memmgrtest.New()
	s.src = firmware.Memory{"nvhost_nvdec012.fw": image}
	s.falcon = newStubFalcon(0, 0)
	s.dev = Device{ID: "15480000.nvdec", Bus: s.falcon.bus, Version: Version{Major: 1, Minor: 2}}

	sleeper := &fakeSleeper{}
	s.driver = NewDriver(s.mgr, s.src,
		WithSleep(sleeper.Sleep),
		WithTimeout(time.Millisecond),
	)
}

func (s *DriverSuite) TestFirmwareName() {
	s.Equal("nvhost_nvdec012.fw", s.driver.FirmwareName(s.dev.Version))

	d := NewDriver(s.mgr, s.src, WithFirmwarePrefix("nvhost_nvdec_bl0"))
	s.Equal("nvhost_nvdec_bl012.fw", d.FirmwareName(s.dev.Version))
}

func (s *DriverSuite) TestInitBootsEngine() {
	s.Require().NoError(s.driver.Init(context.Background(), s.dev))

	h, ok := s.driver.Engine(s.dev.ID)
	s.Require().True(ok)
	s.True(h.Valid())
	s.Equal(StateRunning, h.State())
	s.Equal("nvhost_nvdec012.fw", h.Firmware().Name)

	// Two data chunks for 300 bytes, then code.
	s.Equal([]uint32{0x600, 0x600, 0x610}, s.falcon.commands)
}

func (s *DriverSuite) TestInitTwice() {
	s.Require().NoError(s.driver.Init(context.Background(), s.dev))
	s.ErrorIs(s.driver.Init(context.Background(), s.dev), ErrBusy)
	s.Equal(1, s.mgr.Count(memmgrtest.StepAlloc))
}

func (s *DriverSuite) TestInitLoadFailureRegistersNothing() {
	s.dev.Version = Version{Major: 9, Minor: 9}

	err := s.driver.Init(context.Background(), s.dev)
	s.ErrorIs(err, firmware.ErrNotFound)

	_, ok := s.driver.Engine(s.dev.ID)
	s.False(ok)
	s.ErrorIs(s.driver.FinalizePowerOn(s.dev), ErrNoMedium)
	s.False(s.mgr.Leaked())
}

func (s *DriverSuite) TestInitNilBus() {
	s.dev.Bus = nil
	s.Error(s.driver.Init(context.Background(), s.dev))
	s.Empty(s.mgr.Calls)
}

func (s *DriverSuite) TestInitBootFailureKeepsFirmware() {
	s.falcon.bootPolls = -1

	err := s.driver.Init(context.Background(), s.dev)
	s.ErrorIs(err, ErrBootTimeout)

	h, ok := s.driver.Engine(s.dev.ID)
	s.Require().True(ok)
	s.True(h.Valid())
	s.Equal(StateBootFailed, h.State())

	s.falcon.bootPolls = 0
	s.Require().NoError(s.driver.FinalizePowerOn(s.dev))
	s.Equal(StateRunning, h.State())
}

func (s *DriverSuite) TestPowerCycle() {
	s.Require().NoError(s.driver.Init(context.Background(), s.dev))

	for i := 0; i < 3; i++ {
		s.Require().NoError(s.driver.FinalizePowerOn(s.dev))
	}
	s.Equal(1, s.mgr.Count(memmgrtest.StepAlloc), "power-on reuses resident firmware")
	s.Len(s.falcon.bus.Writes(s.falcon.layout.CPUCtl), 4)

	s.Require().NoError(s.driver.Deinit(s.dev))
	s.False(s.mgr.Leaked())
	s.ErrorIs(s.driver.FinalizePowerOn(s.dev), ErrNoMedium)

	s.Require().NoError(s.driver.Init(context.Background(), s.dev))
	s.Equal(2, s.mgr.Count(memmgrtest.StepAlloc))
}

func (s *DriverSuite) TestDeinitUnknownDevice() {
	s.NoError(s.driver.Deinit(s.dev))
	s.NoError(s.driver.Deinit(Device{ID: "other"}))
	s.Empty(s.mgr.Calls)
}

func (s *DriverSuite) TestClose() {
	other := newStubFalcon(0, 0)
	s.Require().NoError(s.driver.Init(context.Background(), s.dev))
	s.Require().NoError(s.driver.Init(context.Background(), Device{ID: "second", Bus: other.bus, Version: s.dev.Version}))

	s.NoError(s.driver.Close())
	s.False(s.mgr.Leaked())

	_, ok := s.driver.Engine(s.dev.ID)
	s.False(ok)
}

func TestDriverSuite(t *testing.T) {
	suite.Run(t, new(DriverSuite))
}

func TestDriverSerializesHooks(t *testing.T) {
	image, err := ucode.Build(ucode.Spec{Code: make([]byte, 32), Data: make([]byte, 64)})
	if err != nil {
		t.Fatal(err)
	}

	// memmgrtest.Manager is not safe for concurrent use; the driver lock
	// must keep the race detector quiet.
	mgr := memmgrtest.New()
	d := NewDriver(mgr, firmware.Memory{"nvhost_nvdec010.fw": image}, WithSleep(func(time.Duration) {}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		f := newStubFalcon(0, 0)
		dev := Device{ID: string(rune('a' + i)), Bus: f.bus, Version: Version{Major: 1}}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := d.Init(context.Background(), dev); err != nil {
				t.Error(err)
				return
			}
			if err := d.FinalizePowerOn(dev); err != nil {
				t.Error(err)
			}
			if err := d.Deinit(dev); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if mgr.Leaked() {
		t.Error("buffers leaked after concurrent init/deinit")
	}
}
