package cmd

import (
	"strings"

	"github.com/agencykit/automation/pkg/lock"
	"github.com/agencykit/automation/pkg/protocol"
)

// NewRunLock builds the tick run lock. Redis URLs get the distributed lock;
// anything else is a lock file directory.
func NewRunLock(lockURL string) protocol.RunLock {
	if strings.HasPrefix(lockURL, "redis://") || strings.HasPrefix(lockURL, "rediss://") {
		l, err := lock.NewRedisLock(lockURL)
		if err != nil {
			panic("failed to initialize redis lock: " + err.Error())
		}

		return l
	}

	l, err := lock.NewFileLock(strings.TrimPrefix(lockURL, "file://"))
	if err != nil {
		panic("failed to initialize file lock: " + err.Error())
	}

	return l
}
