package version

import "testing"

func TestString(t *testing.T) {
	oldV, oldC, oldD := Version, Commit, Date
	t.Cleanup(func() { Version, Commit, Date = oldV, oldC, oldD })

	Version, Commit, Date = "v1.2.0", "abc1234", "2026-03-01"
	if got := String(); got != "v1.2.0 (abc1234, 2026-03-01)" {
		t.Errorf("String() = %q", got)
	}
}
