package go_vgmplay

import (
	"fmt"
	"runtime"
)

func VersionNumberString() string {
	// TODO: we probably want a commit hash for non-debug binaries
	return "dev"
}

func VersionString() string {
	return fmt.Sprintf("go-vgmplay %s", VersionNumberString())
}

func SystemInfoString() string {
	return fmt.Sprintf("%s; Go %s; %s/%s", VersionString(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
