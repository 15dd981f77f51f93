package platform

import (
	"bufio"
	"strconv"
	"strings"
)

type wmicDisk struct {
	deviceID   string
	volumeName string
	size       uint64
}

// parseWmicDisks reads "wmic logicaldisk ... /format:csv" output. The first
// non-empty line is the header naming the columns (wmic orders them
// alphabetically and prepends Node); rows follow, CRLF-terminated. Column
// positions are resolved from the header rather than assumed.
func parseWmicDisks(out string) []wmicDisk {
	var disks []wmicDisk
	var columns map[string]int

	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Split(line, ",")
		if columns == nil {
			columns = make(map[string]int, len(fields))
			for i, name := range fields {
				columns[strings.TrimSpace(name)] = i
			}
			continue
		}

		deviceID := wmicField(fields, columns, "DeviceID")
		if deviceID == "" {
			continue
		}

		var size uint64
		if parsed, err := strconv.ParseUint(wmicField(fields, columns, "Size"), 10, 64); err == nil {
			size = parsed
		}

		disks = append(disks, wmicDisk{
			deviceID:   deviceID,
			volumeName: wmicField(fields, columns, "VolumeName"),
			size:       size,
		})
	}

	return disks
}

func wmicField(fields []string, columns map[string]int, name string) string {
	i, found := columns[name]
	if !found || i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}
