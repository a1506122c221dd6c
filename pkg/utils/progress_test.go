package utils

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressBar(t *testing.T) {
	var buf bytes.Buffer
	pb := NewProgressBarTo(&buf, 4, "kiosk")

	pb.Update(1)
	assert.Contains(t, buf.String(), "kiosk")
	assert.Contains(t, buf.String(), "25.0% (1/4)")

	pb.SetDescription("kiosk: dpc.apk")
	pb.Update(9)
	assert.Contains(t, buf.String(), "100.0% (4/4)")

	pb.Finish()
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
}

func TestProgressBarZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	pb := NewProgressBarTo(&buf, 0, "empty")
	pb.Increment()
	assert.Empty(t, buf.String())
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.0 KB", FormatBytes(1024))
	assert.Equal(t, "1.5 MB", FormatBytes(1536*1024))
}
