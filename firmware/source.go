package firmware

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// ErrNotFound is returned when no source holds the requested image.
var ErrNotFound = errors.New("firmware not found")

// DefaultSearchPaths mirrors the usual Linux firmware directories.
var DefaultSearchPaths = []string{
	"/lib/firmware/updates",
	"/lib/firmware",
}

// Source fetches firmware images by file name.
type Source interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// Dir looks firmware up in a list of directories. For each directory it
// tries name, then name.xz, then name.zst, and returns the first hit,
// decompressed.
type Dir struct {
	Paths []string
}

// NewDir returns a Dir over paths, or over DefaultSearchPaths if none are given.
func NewDir(paths ...string) *Dir {
	if len(paths) == 0 {
		paths = DefaultSearchPaths
	}
	return &Dir{Paths: paths}
}

type decoder func([]byte) ([]byte, error)

var suffixes = []struct {
	ext    string
	decode decoder
}{
	{"", nil},
	{".xz", decodeXZ},
	{".zst", decodeZstd},
}

// Fetch implements Source.
func (d *Dir) Fetch(ctx context.Context, name string) ([]byte, error) {
	if name == "" || filepath.Base(name) != name {
		return nil, fmt.Errorf("invalid firmware name %q", name)
	}

	for _, dir := range d.Paths {
		for _, s := range suffixes {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			path := filepath.Join(dir, name+s.ext)
			data, err := os.ReadFile(path)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", path, err)
			}

			if s.decode == nil {
				return data, nil
			}
			out, err := s.decode(data)
			if err != nil {
				return nil, fmt.Errorf("decompress %s: %w", path, err)
			}
			return out, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

func decodeXZ(data []byte) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

func decodeZstd(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}

// Memory is a map-backed Source.
type Memory map[string][]byte

// Fetch implements Source. The returned slice is a copy.
func (m Memory) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return append([]byte(nil), data...), nil
}
