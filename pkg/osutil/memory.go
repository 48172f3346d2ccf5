// Package osutil inspects the host the process runs on.
package osutil

import (
	"os"
	"strconv"
	"strings"

	"github.com/pbnjay/memory"
)

// cgroup v1 reports this page-aligned MaxInt64 when no limit is set.
const cgroupV1Unlimited = 9223372036854771712

var cgroupLimitFiles = []string{
	"/sys/fs/cgroup/memory.max",                   // v2
	"/sys/fs/cgroup/memory/memory.limit_in_bytes", // v1
}

// GetTotalMemory returns the memory available to the process in bytes,
// preferring a container's cgroup limit over the host's physical memory.
func GetTotalMemory() uint64 {
	total := memory.TotalMemory()
	for _, path := range cgroupLimitFiles {
		if limit, ok := readCgroupLimit(path); ok && (total == 0 || limit < total) {
			return limit
		}
	}
	return total
}

func readCgroupLimit(path string) (uint64, bool) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	return parseCgroupLimit(string(raw))
}

func parseCgroupLimit(raw string) (uint64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "max" {
		return 0, false
	}

	limit, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || limit == 0 || limit == cgroupV1Unlimited {
		return 0, false
	}
	return limit, true
}
