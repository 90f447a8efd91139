//go:build !windows

package settings

import (
	"fmt"
)

// atomicRenameWindows is never called on non-Windows platforms.
func atomicRenameWindows(oldpath, newpath string) error {
	return fmt.Errorf("atomicRenameWindows called on non-Windows platform")
}
