package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	info := Info()
	if !strings.HasPrefix(info, "sqlgate "+Short()) {
		t.Errorf("Info() = %q, want prefix %q", info, "sqlgate "+Short())
	}
	if !strings.HasSuffix(info, runtime.Version()) {
		t.Errorf("Info() = %q, want suffix %q", info, runtime.Version())
	}
}
