// Package firmware fetches ucode images and makes them resident in
// DMA-able memory.
//
// A Source maps a file name to image bytes. Dir searches directories the way
// the Linux firmware loader does, including .xz and .zst compressed
// variants; Memory serves images from a map.
//
// Load brackets the whole acquisition: fetch, allocate/pin/map, copy, parse.
// A Resident owns its buffer until Release.
package firmware
