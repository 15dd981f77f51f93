package platform

import (
	"bufio"
	"io"
	"strings"
)

// mountEntry is one line of /proc/mounts.
type mountEntry struct {
	device     string
	mountPoint string
	fsType     string
}

// parseMounts reads /proc/mounts-style content. Mount points with embedded
// whitespace come escaped as octal sequences (e.g. "\040" for space); they
// are decoded here.
func parseMounts(r io.Reader) ([]mountEntry, error) {
	var entries []mountEntry

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		entries = append(entries, mountEntry{
			device:     fields[0],
			mountPoint: unescapeMountPath(fields[1]),
			fsType:     fields[2],
		})
	}

	return entries, scanner.Err()
}

var mountPathUnescaper = strings.NewReplacer(
	`\040`, " ",
	`\011`, "\t",
	`\012`, "\n",
	`\134`, `\`,
)

func unescapeMountPath(path string) string {
	if !strings.Contains(path, `\`) {
		return path
	}
	return mountPathUnescaper.Replace(path)
}
