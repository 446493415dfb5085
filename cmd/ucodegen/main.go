// ucodegen writes a synthetic NVDEC ucode container.
//
// Synopsis:
//
//	ucodegen [--code FILE | --code-size N] [--data FILE | --data-size N] [--xz | --zstd] -o OUT
//
// Segments read from files are placed as-is; generated segments are filled
// with a repeating byte pattern so transfers can be checked on the
// simulator.
package main

import (
	"bytes"
	"fmt"
	"log"
	"os"

	"github.com/klauspost/compress/zstd"
	flag "github.com/spf13/pflag"
	"github.com/ulikunitz/xz"

	"github.com/moffa90/go-nvdec/ucode"
)

var (
	codePath = flag.String("code", "", "file holding the IMEM segment")
	dataPath = flag.String("data", "", "file holding the DMEM segment")
	codeSize = flag.Int("code-size", 256, "size of a generated IMEM segment")
	dataSize = flag.Int("data-size", 256, "size of a generated DMEM segment")
	appCount = flag.Uint32("apps", 0, "application count recorded in the OS header")
	useXZ    = flag.Bool("xz", false, "compress the output with xz and append .xz")
	useZstd  = flag.Bool("zstd", false, "compress the output with zstd and append .zst")
	outPath  = flag.StringP("output", "o", "", "output file")
)

func main() {
	flag.Parse()

	if *outPath == "" || flag.NArg() != 0 {
		log.Fatal("Usage: ucodegen [options] -o <output-file>")
	}
	if *useXZ && *useZstd {
		log.Fatal("--xz and --zstd are mutually exclusive")
	}

	code, err := segment(*codePath, *codeSize, 0xC0)
	if err != nil {
		log.Fatal(err)
	}
	data, err := segment(*dataPath, *dataSize, 0x00)
	if err != nil {
		log.Fatal(err)
	}

	image, err := ucode.Build(ucode.Spec{Code: code, Data: data, AppCount: *appCount})
	if err != nil {
		log.Fatal(err)
	}

	path := *outPath
	switch {
	case *useXZ:
		image, err = compressXZ(image)
		path += ".xz"
	case *useZstd:
		image, err = compressZstd(image)
		path += ".zst"
	}
	if err != nil {
		log.Fatal(err)
	}

	if err := os.WriteFile(path, image, 0o644); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("wrote %s (%d bytes, code %d, data %d)\n", path, len(image), len(code), len(data))
}

func segment(path string, size int, seed byte) ([]byte, error) {
	if path != "" {
		return os.ReadFile(path)
	}
	if size < 0 {
		return nil, fmt.Errorf("negative segment size %d", size)
	}
	b := make([]byte, size)
	for i := range b {
		b[i] = seed + byte(i)
	}
	return b, nil
}

func compressXZ(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(b); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func compressZstd(b []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(b, nil), nil
}
