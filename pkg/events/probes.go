package events

import (
	"os"
	"path/filepath"
)

// sysfsArrayReady checks that the array state attribute exists for the named
// md device, meaning the array has been assembled.
func sysfsArrayReady(name string) bool {
	base := filepath.Base(name)
	_, err := os.Stat(filepath.Join("/sys/block", base, "md", "array_state"))
	return err == nil
}

// sysfsLoopReady checks that the named loop device has a backing file.
func sysfsLoopReady(name string) bool {
	base := filepath.Base(name)
	_, err := os.Stat(filepath.Join("/sys/block", base, "loop", "backing_file"))
	return err == nil
}
