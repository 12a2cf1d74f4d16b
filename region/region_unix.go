//go:build unix

package region

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Anonymous mmaps a page-aligned, anonymous PROT_READ|PROT_WRITE
// region of the given size.
func Anonymous(size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("region: size must be positive, got %d", size)
	}
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("region: mmap failed: %w", err)
	}
	closed := false
	return &Region{
		data: data,
		close: func() error {
			if closed {
				return nil
			}
			closed = true
			err := unix.Munmap(data)
			if errors.Is(err, unix.EINVAL) {
				return nil
			}
			return err
		},
	}, nil
}
