//go:build (!linux && !darwin && !windows) || (linux && !cgo)

package platform

import (
	"fmt"
	"runtime"

	"github.com/storagedev/usb-manager/internal/storage"
)

func newBackend() (storage.Backend, error) {
	return nil, fmt.Errorf("removable device detection is not supported on %s", runtime.GOOS)
}

func mountRoots() []string {
	return nil
}
