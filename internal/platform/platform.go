// Package platform provides the per-OS storage backends: enumerating the
// removable devices currently mounted and unmounting one of them. Each OS
// gets its own build-tagged file supplying newBackend and mountRoots; the
// output parsing is kept in untagged files so it is testable everywhere.
package platform

import (
	"github.com/storagedev/usb-manager/internal/storage"
)

// New returns the storage backend for the operating system this binary was
// built for. Unsupported platforms get an error, not a panic.
func New() (storage.Backend, error) {
	return newBackend()
}

// MountRoots lists the directories removable volumes are mounted under on
// this platform, suitable for storage.WithMountHints. May be empty.
func MountRoots() []string {
	return mountRoots()
}
