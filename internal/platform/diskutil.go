package platform

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
)

// parseDiskutilInfo turns "diskutil info <volume>" output into a key/value
// map. Lines look like "   Volume Name:               STICK"; indentation
// and padding are stripped, lines without a colon are ignored.
func parseDiskutilInfo(out string) map[string]string {
	info := make(map[string]string)

	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		info[key] = value
	}

	return info
}

var diskutilBytesPattern = regexp.MustCompile(`\((\d+) Bytes\)`)

// diskutilBytes extracts the byte count from a diskutil size field such as
// "15.5 GB (15502147584 Bytes) (exactly 30277632 512-Byte-Units)".
func diskutilBytes(value string) uint64 {
	match := diskutilBytesPattern.FindStringSubmatch(value)
	if match == nil {
		return 0
	}
	size, err := strconv.ParseUint(match[1], 10, 64)
	if err != nil {
		return 0
	}
	return size
}

// diskutilRemovable reports whether a diskutil info map describes a
// removable USB volume.
func diskutilRemovable(info map[string]string) bool {
	switch info["Removable Media"] {
	case "Yes", "Removable":
	default:
		return false
	}
	return strings.EqualFold(info["Protocol"], "USB")
}
