//go:build !windows

package fileid

import (
	"fmt"
	"os"
	"syscall"
)

// FromFile resolves a file identity on non-Windows platforms from the
// (device, inode) pair stat(2) returns, standing in for (volume serial
// number, file id) with the same equality/ordering contract.
func FromFile(f *os.File) (Identity, error) {
	fi, err := f.Stat()
	if err != nil {
		return Identity{}, err
	}
	stat, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return Identity{}, fmt.Errorf("fileid: unsupported FileInfo.Sys() type %T", fi.Sys())
	}

	var id Identity
	id.Volume = uint64(stat.Dev)
	ino := uint64(stat.Ino)
	for i := 0; i < 8; i++ {
		id.Bytes[i] = byte(ino >> (8 * i))
	}
	return id, nil
}
