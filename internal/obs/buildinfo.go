package obs

import (
	"runtime/debug"
	"sync"
)

var (
	buildOnce sync.Once
	revision  string
)

// Revision returns the VCS revision compiled into the binary, if any.
func Revision() string {
	buildOnce.Do(func() {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				revision = s.Value
				return
			}
		}
	})
	return revision
}
