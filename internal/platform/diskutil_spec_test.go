package platform

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const diskutilFixture = `   Device Identifier:         disk4s1
   Device Node:               /dev/disk4s1
   Whole:                     No
   Part of Whole:             disk4

   Volume Name:               STICK
   Mounted:                   Yes
   Mount Point:               /Volumes/STICK

   Partition Type:            Windows_FAT_32
   File System Personality:   MS-DOS FAT32

   Disk Size:                 15.5 GB (15502147584 Bytes) (exactly 30277632 512-Byte-Units)

   Protocol:                  USB
   SMART Status:              Not Supported

   Removable Media:           Removable
   Media Removal:             Software-Activated
`

var _ = Describe("parseDiskutilInfo", func() {
	It("should map trimmed keys to trimmed values", func() {
		info := parseDiskutilInfo(diskutilFixture)

		Expect(info["Volume Name"]).To(Equal("STICK"))
		Expect(info["Device Node"]).To(Equal("/dev/disk4s1"))
		Expect(info["Protocol"]).To(Equal("USB"))
		Expect(info["Removable Media"]).To(Equal("Removable"))
	})

	It("should ignore blank lines and lines without a colon", func() {
		info := parseDiskutilInfo("garbage line\n\n   Key:   Value\n")
		Expect(info).To(HaveLen(1))
		Expect(info["Key"]).To(Equal("Value"))
	})
})

var _ = Describe("diskutilBytes", func() {
	It("should extract the exact byte count", func() {
		Expect(diskutilBytes("15.5 GB (15502147584 Bytes) (exactly 30277632 512-Byte-Units)")).
			To(Equal(uint64(15502147584)))
	})

	It("should return 0 when no byte count is present", func() {
		Expect(diskutilBytes("Not Supported")).To(BeZero())
		Expect(diskutilBytes("")).To(BeZero())
	})
})

var _ = Describe("diskutilRemovable", func() {
	It("should accept removable USB media", func() {
		Expect(diskutilRemovable(parseDiskutilInfo(diskutilFixture))).To(BeTrue())
	})

	It("should reject fixed media", func() {
		Expect(diskutilRemovable(map[string]string{
			"Removable Media": "Fixed",
			"Protocol":        "PCI-Express",
		})).To(BeFalse())
	})

	It("should reject removable media on a non-USB protocol", func() {
		Expect(diskutilRemovable(map[string]string{
			"Removable Media": "Removable",
			"Protocol":        "Thunderbolt",
		})).To(BeFalse())
	})
})
