//go:build linux || darwin

package fetcher

import "golang.org/x/sys/unix"

// freeSpace reports available bytes on the filesystem holding dir.
// ok=false means the answer is unknown and the check is skipped.
func freeSpace(dir string) (int64, bool) {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return 0, false
	}
	return int64(uint64(st.Bavail) * uint64(st.Bsize)), true
}
