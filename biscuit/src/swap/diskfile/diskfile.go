// Package diskfile backs the swap.Disk interface with a real host
// file, the same "disk simulated by a file" trick the teacher's
// ufs.ahci_disk_t uses for its fs block device, re-expressed with
// golang.org/x/sys/unix.Pread/Pwrite instead of Seek+Read/Write so
// concurrent readers/writers at different offsets never race on a
// shared file cursor.
package diskfile

import (
	"os"

	"golang.org/x/sys/unix"
)

// SectorSize matches swap.SectorSize; duplicated here so diskfile has
// no compile-time dependency on the swap package.
const SectorSize = 512

// Disk is a swap.Disk backed by a regular file, sized to hold exactly
// nsectors sectors.
type Disk struct {
	f        *os.File
	nsectors int
}

// Open creates (or truncates) path to hold nsectors sectors.
func Open(path string, nsectors int) (*Disk, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, err
	}
	if err := f.Truncate(int64(nsectors) * SectorSize); err != nil {
		f.Close()
		return nil, err
	}
	return &Disk{f: f, nsectors: nsectors}, nil
}

// ReadSector implements swap.Disk.
func (d *Disk) ReadSector(sector int, buf []byte) error {
	_, err := unix.Pread(int(d.f.Fd()), buf, int64(sector)*SectorSize)
	return err
}

// WriteSector implements swap.Disk.
func (d *Disk) WriteSector(sector int, buf []byte) error {
	_, err := unix.Pwrite(int(d.f.Fd()), buf, int64(sector)*SectorSize)
	return err
}

// NumSectors implements swap.Disk.
func (d *Disk) NumSectors() int { return d.nsectors }

// Close closes the backing file.
func (d *Disk) Close() error { return d.f.Close() }
