package ucode

import "fmt"

// DefaultFirmwarePrefix is the NVDEC firmware file prefix.
const DefaultFirmwarePrefix = "nvhost_nvdec0"

// FirmwareName derives the firmware file name from the engine version read
// from platform data: "<prefix><major><minor>.fw".
func FirmwareName(prefix string, major, minor uint8) string {
	return fmt.Sprintf("%s%d%d.fw", prefix, major, minor)
}
