package main

import (
	"strings"
	"time"

	"github.com/storagedev/usb-manager/internal/storage"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("parseConfig", func() {
	It("should parse a full config", func() {
		config, err := parseConfig(strings.NewReader(`
polling_interval: 2s
mount_hints: true
status_dir: /var/run/usb-manager
ignore_labels:
  - "^BACKUP"
  - "SCRATCH$"
`))
		Expect(err).NotTo(HaveOccurred())
		Expect(config.interval).To(Equal(2 * time.Second))
		Expect(config.MountHints).To(BeTrue())
		Expect(config.StatusDir).To(Equal("/var/run/usb-manager"))
		Expect(config.ignore).To(HaveLen(2))
		Expect(config.ignore[0].MatchString("BACKUP_2024")).To(BeTrue())
		Expect(config.ignore[0].MatchString("MY_BACKUP")).To(BeFalse())
	})

	It("should default the interval when omitted", func() {
		config, err := parseConfig(strings.NewReader(`mount_hints: false`))
		Expect(err).NotTo(HaveOccurred())
		Expect(config.interval).To(Equal(storage.DefaultPollingInterval))
	})

	It("should reject an unparsable interval", func() {
		_, err := parseConfig(strings.NewReader(`polling_interval: "fast"`))
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring(".polling_interval"))
	})

	It("should reject a non-positive interval", func() {
		_, err := parseConfig(strings.NewReader(`polling_interval: "-3s"`))
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("greater than 0"))
	})

	It("should reject an invalid ignore pattern", func() {
		_, err := parseConfig(strings.NewReader("ignore_labels:\n  - \"[\"\n"))
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring(".ignore_labels[0]"))
	})

	It("should report every invalid field at once", func() {
		_, err := parseConfig(strings.NewReader("polling_interval: \"0s\"\nignore_labels:\n  - \"[\"\n"))
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring(".polling_interval"))
		Expect(err.Error()).To(ContainSubstring(".ignore_labels[0]"))
	})
})

var _ = Describe("ConfigFlag", func() {
	It("should accept the three source forms", func() {
		var flag ConfigFlag
		Expect(flag.Set("file:/etc/usb-manager.yaml")).To(Succeed())
		Expect(flag.String()).To(Equal("file:/etc/usb-manager.yaml"))

		Expect(flag.Set("env:USB_MANAGER_CONFIG")).To(Succeed())
		Expect(flag.String()).To(Equal("env:USB_MANAGER_CONFIG"))

		Expect(flag.Set("stdin")).To(Succeed())
		Expect(flag.String()).To(Equal("stdin"))
	})

	It("should reject unknown sources", func() {
		var flag ConfigFlag
		Expect(flag.Set("http://example.com/config")).NotTo(Succeed())
	})
})
