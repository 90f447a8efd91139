package jskit

import (
	"strconv"
	"strings"
)

// DefaultModel is reported when the device cannot name its model.
const DefaultModel = "pebble_black"

// FirmwareVersion is a parsed watch firmware version such as v4.3.2-rc1.
type FirmwareVersion struct {
	Major  int    `json:"major"`
	Minor  int    `json:"minor"`
	Patch  int    `json:"patch"`
	Suffix string `json:"suffix"`
}

// WatchInfo describes the connected watch as scripts see it.
type WatchInfo struct {
	Platform string          `json:"platform"`
	Model    string          `json:"model"`
	Language string          `json:"language"`
	Firmware FirmwareVersion `json:"firmware"`
}

// ParseFirmwareVersion parses "v<major>.<minor>.<patch>[-suffix]". Missing
// or non-numeric components are zero.
func ParseFirmwareVersion(s string) FirmwareVersion {
	var v FirmwareVersion
	parts := strings.SplitN(strings.TrimPrefix(strings.TrimSpace(s), "v"), ".", 3)
	if len(parts) > 0 {
		v.Major = atoi(parts[0])
	}
	if len(parts) > 1 {
		v.Minor = atoi(parts[1])
	}
	if len(parts) > 2 {
		patch, suffix, _ := strings.Cut(parts[2], "-")
		v.Patch = atoi(patch)
		v.Suffix = suffix
	}
	return v
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func watchInfo(d Device) WatchInfo {
	model := d.ModelName()
	if model == "" {
		model = DefaultModel
	}
	return WatchInfo{
		Platform: d.Platform(),
		Model:    model,
		Language: d.Language(),
		Firmware: ParseFirmwareVersion(d.FirmwareVersion()),
	}
}
