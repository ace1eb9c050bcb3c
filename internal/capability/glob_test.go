package capability

import "testing"

func TestGlobMatch(t *testing.T) {
	cases := []struct {
		pattern, resource string
		want              bool
	}{
		{"/tmp/*", "/tmp/foo.txt", true},
		{"/tmp/*", "/tmp/sub/foo.txt", false}, // * does not cross a segment
		{"/tmp/*/data", "/tmp/sub/data", true},
		{"/etc/{passwd,shadow}", "/etc/passwd", true},
		{"/etc/{passwd,shadow}", "/etc/hosts", false},
		{"/tmp/file?.txt", "/tmp/file1.txt", true},
		{"/tmp/file?.txt", "/tmp/file12.txt", false},
	}
	for _, c := range cases {
		if got := GlobMatch(c.pattern, c.resource); got != c.want {
			t.Errorf("GlobMatch(%q, %q) = %v, want %v", c.pattern, c.resource, got, c.want)
		}
	}
}

func TestPatternCovers(t *testing.T) {
	cases := []struct {
		general, specific string
		want              bool
	}{
		{"/tmp/*", "/tmp/foo", true},
		{"/tmp/*", "/var/*", false}, // differing literal segments never cover each other
		{"/tmp/*", "/tmp/*", true},  // identical patterns trivially cover themselves
		{"/etc/{a,b,c}", "/etc/{a,b}", true},
		{"/etc/{a,b}", "/etc/{a,b,c}", false},
		{"/tmp/exact", "/tmp/exact", true},
		{"/tmp/exact", "/tmp/other", false},
	}
	for _, c := range cases {
		if got := PatternCovers(c.general, c.specific); got != c.want {
			t.Errorf("PatternCovers(%q, %q) = %v, want %v", c.general, c.specific, got, c.want)
		}
	}
}
