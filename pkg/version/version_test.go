package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	s := String()
	if !strings.HasPrefix(s, "fc "+Version) {
		t.Errorf("String() = %q", s)
	}
}
