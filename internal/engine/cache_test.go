package engine

import "testing"

func TestRegexCacheCompilesAndReusesPattern(t *testing.T) {
	c, err := newRegexCache(4)
	if err != nil {
		t.Fatalf("newRegexCache() failed: %v", err)
	}

	re1, err := c.compile(`error code [0-9]+`)
	if err != nil {
		t.Fatalf("compile() failed: %v", err)
	}
	re2, err := c.compile(`error code [0-9]+`)
	if err != nil {
		t.Fatalf("second compile() failed: %v", err)
	}
	if re1 != re2 {
		t.Error("compile() of the same pattern twice returned distinct *regexp.Regexp, want the cached instance")
	}
}

func TestRegexCacheRejectsInvalidPattern(t *testing.T) {
	c, err := newRegexCache(4)
	if err != nil {
		t.Fatalf("newRegexCache() failed: %v", err)
	}
	if _, err := c.compile(`[`); err == nil {
		t.Error("compile() of an invalid pattern: got nil error, want an error")
	}
}

func TestRegexCacheDefaultsSizeWhenNonPositive(t *testing.T) {
	if _, err := newRegexCache(0); err != nil {
		t.Errorf("newRegexCache(0) failed: %v", err)
	}
	if _, err := newRegexCache(-1); err != nil {
		t.Errorf("newRegexCache(-1) failed: %v", err)
	}
}
