package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo(t *testing.T) {
	info := Info()

	assert.Contains(t, info, "ownerkit "+Version)
	assert.Contains(t, info, "Commit: "+Commit)
	assert.Contains(t, info, runtime.GOOS+"/"+runtime.GOARCH)
}

func TestShort(t *testing.T) {
	oldVersion, oldCommit := Version, Commit
	t.Cleanup(func() { Version, Commit = oldVersion, oldCommit })

	Version, Commit = "1.2.0", "unknown"
	assert.Equal(t, "1.2.0", Short())

	Commit = "0123456789abcdef"
	assert.Equal(t, "1.2.0 (0123456)", Short())
}
