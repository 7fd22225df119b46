// Package glob extends path.Match with "**" support and adds directory
// expansion used to enumerate workspace members (§4.C) and workspace
// exclude patterns.
package glob

import (
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Match extends path.Match to support the "**" glob segment:
//   - "**" matches zero or more path segments.
//   - "**" may appear at most once in the pattern.
//   - "**" must be bounded by "/" or by the start/end of the pattern.
func Match(pattern, name string) (bool, error) {
	if !strings.Contains(pattern, "**") {
		return path.Match(pattern, name)
	}
	if err := validateGlobstar(pattern); err != nil {
		return false, err
	}
	parts := strings.SplitN(pattern, "**", 2)
	prefixPattern, suffixPattern := parts[0], parts[1]
	if prefixPattern != "" {
		end := prefixEnd(name, strings.Count(prefixPattern, "/"))
		if end == -1 || len(name) < end {
			return false, nil
		}
		ok, err := path.Match(prefixPattern, name[:end])
		if err != nil || !ok {
			return false, err
		}
	}
	if suffixPattern != "" {
		start := suffixStart(name, strings.Count(suffixPattern, "/"))
		if start == -1 || start > len(name) {
			return false, nil
		}
		ok, err := path.Match(suffixPattern, name[start:])
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func validateGlobstar(pattern string) error {
	if strings.Count(pattern, "**") > 1 {
		return errors.New("glob: only one '**' is permitted per pattern")
	}
	idx := strings.Index(pattern, "**")
	if idx == -1 {
		return nil
	}
	if idx > 0 && pattern[idx-1] != '/' {
		return errors.New("glob: '**' must be bounded by '/' or pattern start/end")
	}
	if idx+2 < len(pattern) && pattern[idx+2] != '/' {
		return errors.New("glob: '**' must be bounded by '/' or pattern start/end")
	}
	return nil
}

func prefixEnd(name string, slashesWanted int) int {
	if slashesWanted == 0 {
		return 0
	}
	seen := 0
	for i, c := range name {
		if c == '/' {
			seen++
			if seen == slashesWanted {
				return i + 1
			}
		}
	}
	return -1
}

func suffixStart(name string, slashesWanted int) int {
	if slashesWanted == 0 {
		return len(name)
	}
	seen := 0
	for i := range name {
		if name[len(name)-i-1] == '/' {
			seen++
			if seen == slashesWanted {
				return len(name) - i - 1
			}
		}
	}
	return -1
}

// ExpandDirs resolves a member/exclude glob (rooted at base) to the set of
// matching directories on disk. Patterns are interpreted relative to base
// using filepath.Glob for the non-"**" case and a directory walk for "**".
func ExpandDirs(base, pattern string) ([]string, error) {
	abs := filepath.Join(base, filepath.FromSlash(pattern))
	if !strings.Contains(pattern, "**") {
		matches, err := filepath.Glob(abs)
		if err != nil {
			return nil, err
		}
		return filterDirs(matches), nil
	}
	var matches []string
	err := filepath.Walk(base, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(base, p)
		if err != nil {
			return err
		}
		ok, err := Match(filepath.ToSlash(pattern), filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		if ok {
			matches = append(matches, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

func filterDirs(paths []string) []string {
	var dirs []string
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			dirs = append(dirs, p)
		}
	}
	return dirs
}
