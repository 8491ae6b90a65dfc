package debug

import (
	"strings"
	"testing"
)

func TestDump(t *testing.T) {
	type sample struct {
		Name  string
		Count int
	}

	out := Dump(sample{Name: "alice", Count: 2})
	for _, want := range []string{"Name: (string) (len=5) \"alice\"", "Count: (int) 2"} {
		if !strings.Contains(out, want) {
			t.Errorf("Dump() output missing %q:\n%s", want, out)
		}
	}
}
