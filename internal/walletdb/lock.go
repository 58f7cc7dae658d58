package walletdb

import (
	"os"

	"golang.org/x/sys/unix"
)

// acquireLock takes an advisory exclusive flock on path, creating it if
// necessary. The returned file must be kept open for the lifetime of the
// process; closing it releases the lock.
func acquireLock(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}
