package engine

import (
	"fmt"
	"regexp"

	lru "github.com/hashicorp/golang-lru/v2"
)

// regexCache bounds how many compiled trigger-matching regexes PatternManager
// keeps resident. Patterns are compiled once, at construction or on first
// use, and reused from here — never recompiled per recall call.
type regexCache struct {
	cache *lru.Cache[string, *regexp.Regexp]
}

func newRegexCache(size int) (*regexCache, error) {
	if size <= 0 {
		size = 512
	}
	c, err := lru.New[string, *regexp.Regexp](size)
	if err != nil {
		return nil, fmt.Errorf("engine: building pattern regex cache: %w", err)
	}
	return &regexCache{cache: c}, nil
}

// compile returns the cached compiled regex for pattern, compiling and
// caching it on first use.
func (r *regexCache) compile(pattern string) (*regexp.Regexp, error) {
	if re, ok := r.cache.Get(pattern); ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("engine: compiling pattern regex %q: %w", pattern, err)
	}
	r.cache.Add(pattern, re)
	return re, nil
}
