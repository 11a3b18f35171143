// Package version reports the kernel's own build version for the shell's
// "version" command, using a real semver type rather than a bare string so
// that comparisons and parsing are available for free.
package version

import "github.com/Masterminds/semver/v3"

// Current is the version string for this build.
const Current = "1.0.0"

// Parsed returns the parsed semver.Version for Current. It panics if
// Current is not valid semver, which would only happen if a future edit to
// the constant above introduces a typo — there is no recovery path for a
// malformed build identifier baked into the binary itself.
func Parsed() *semver.Version {
	v, err := semver.NewVersion(Current)
	if err != nil {
		panic("version: invalid semver constant: " + err.Error())
	}
	return v
}

// Banner is the multi-line string the shell's "version" command prints.
func Banner() string {
	return "NanOS v" + Current + " - ext2 Filesystem Edition\n" +
		"Built with Go for x86-32\n" +
		"Features: Multiboot, Paging, Heap, Multitasking, ext2, VFS\n"
}
