// File: internal/prefixlist/prefixlist.go
package prefixlist

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/afero"
)

var (
	ErrListMissing = errors.New("prefix list file not found")
	ErrListEmpty   = errors.New("prefix list contains no prefixes")
)

// Reads a newline-delimited prefix list. Lines are trimmed and blank lines dropped;
// there are no quoting or comment rules, so every other line is a prefix verbatim
func Read(fs afero.Fs, path string) ([]string, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrListMissing, path)
		}
		return nil, fmt.Errorf("error reading prefix list %s: %w", path, err)
	}

	prefixes, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("error reading prefix list %s: %w", path, err)
	}
	if len(prefixes) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrListEmpty, path)
	}
	return prefixes, nil
}

func Parse(data []byte) ([]string, error) {
	var prefixes []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	// Allow long keys; S3 keys alone may be 1024 bytes
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			prefixes = append(prefixes, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return prefixes, nil
}

// Concatenates the lists, trimming entries and dropping blanks. Order and repeats are kept:
// each entry is one pass over its prefix
func Merge(lists ...[]string) []string {
	var out []string
	for _, list := range lists {
		for _, p := range list {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
