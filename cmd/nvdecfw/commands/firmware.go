package commands

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"k8s.io/klog/v2"

	"github.com/moffa90/go-nvdec/firmware"
	"github.com/moffa90/go-nvdec/regs"
)

// ReadImage reads a firmware file. A missing path is retried with .xz and
// .zst suffixes, the way the kernel firmware loader does.
func ReadImage(ctx context.Context, path string) ([]byte, error) {
	return firmware.NewDir(filepath.Dir(path)).Fetch(ctx, filepath.Base(path))
}

// SetVerbosity routes klog to stderr at the given -v level.
func SetVerbosity(v int) error {
	fs := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(fs)
	return fs.Set("v", strconv.Itoa(v))
}

// LoadLayout reads a register layout from path, or returns the default
// layout when path is empty.
func LoadLayout(path string) (regs.Layout, error) {
	if path == "" {
		return regs.DefaultLayout(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return regs.Layout{}, fmt.Errorf("unable to open the layout file '%s': %w", path, err)
	}
	defer f.Close()

	layout, err := regs.LoadLayout(f)
	if err != nil {
		return regs.Layout{}, fmt.Errorf("unable to load the layout file '%s': %w", path, err)
	}
	return layout, nil
}
