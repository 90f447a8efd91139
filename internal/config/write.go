package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joeycumines/jskit/internal/settings"
)

// SetKeyInFile sets the fully qualified option key in the config file at
// path, keeping comments, ordering and indentation intact.
//
// Every line that resolves to key is rewritten, whether it is written out in
// full ("device.serial X") or sits under a section ("[device]" then
// "serial X"). Otherwise the option is appended to the last block of the
// most specific section that prefixes key, or failing that, placed in the
// global section ahead of the first header.
func SetKeyInFile(path, key, value string) error {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config file: %w", err)
	}

	var lines []string
	if len(data) > 0 {
		lines = strings.Split(string(data), "\n")
	}

	var (
		section     string
		found       bool
		firstHeader = -1
		// end of the chosen section block, and that section's name
		blockEnd     = -1
		blockSection string
		inBlock      bool
	)
	for i, raw := range lines {
		line, ok, err := parseLine(raw)
		if err != nil {
			return fmt.Errorf("line %d: %w", i+1, err)
		}
		if !ok {
			continue
		}
		if line.header {
			section = line.section
			if firstHeader < 0 {
				firstHeader = i
			}
			inBlock = section != "" &&
				strings.HasPrefix(key, section+".") &&
				len(section) >= len(blockSection)
			if inBlock {
				blockSection = section
				blockEnd = i + 1
			}
			continue
		}
		if inBlock {
			blockEnd = i + 1
		}
		if qualify(section, line.name) == key {
			indent := raw[:len(raw)-len(strings.TrimLeft(raw, " \t"))]
			lines[i] = indent + formatOption(line.name, value)
			found = true
		}
	}

	if !found {
		switch {
		case blockEnd >= 0:
			lines = insertLine(lines, blockEnd, formatOption(strings.TrimPrefix(key, blockSection+"."), value))
		case firstHeader >= 0:
			lines = insertLine(lines, firstHeader, formatOption(key, value))
		default:
			end := len(lines)
			if end > 0 && lines[end-1] == "" {
				end--
			}
			lines = insertLine(lines, end, formatOption(key, value))
		}
	}

	result := strings.Join(lines, "\n")
	if !strings.HasSuffix(result, "\n") {
		result += "\n"
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return settings.AtomicWriteFile(path, []byte(result), 0644)
}

func formatOption(name, value string) string {
	if value == "" {
		return name
	}
	return name + " " + value
}

func insertLine(lines []string, i int, line string) []string {
	lines = append(lines, "")
	copy(lines[i+1:], lines[i:])
	lines[i] = line
	return lines
}
