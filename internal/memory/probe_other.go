//go:build !linux

package memory

import "fmt"

// ProbeRSS is not implemented outside Linux; the native memory probe loop
// simply skips sampling on these platforms.
func ProbeRSS(pid int) (int64, error) {
	return 0, fmt.Errorf("memory sampling not supported on this platform")
}
