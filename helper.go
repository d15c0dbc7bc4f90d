package tryenv

import (
	"bufio"
	"bytes"
	"fmt"
	"sort"
	"strings"
)

// BulkEntry is one parsed key/value pair from a bulk import.
type BulkEntry struct {
	Key   string
	Value string
}

// maxBulkLineLen caps a single bulk-import line at 1 MiB.
const maxBulkLineLen = 1 << 20

// ParseBulk parses dotenv-style bulk-import text. The rules are
// deliberately forgiving: blank lines and #-comments are skipped, lines
// without an '=' are skipped, keys and values are trimmed, and one layer
// of matching surrounding quotes (double, single, or backtick) is
// stripped from the value. A line with an empty key is skipped; a line
// with an empty value yields the empty string. A line over the length
// cap is an error, never a silent drop.
func ParseBulk(data []byte) ([]BulkEntry, error) {
	var entries []BulkEntry
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), maxBulkLineLen)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		entries = append(entries, BulkEntry{Key: key, Value: unquote(strings.TrimSpace(value))})
	}
	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("scanning import data: %w", err)
	}
	return entries, nil
}

// unquote strips one layer of matching surrounding quotes, if present on
// both ends.
func unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	switch first := s[0]; first {
	case '"', '\'', '`':
		if s[len(s)-1] == first {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// DecryptInstance decrypts every variable of one instance into a plain
// map.
func DecryptInstance(s *Store, projectID string, kind InstanceKind) (map[string]string, error) {
	vars, _, err := s.vars(projectID, kind)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(vars))
	for key := range vars {
		plaintext, err := s.GetVariable(projectID, kind, key)
		if err != nil {
			return nil, fmt.Errorf("decrypting %q: %w", key, err)
		}
		out[key] = plaintext
	}
	return out, nil
}

// ExportDotenv renders one instance's decrypted variables as dotenv text
// with keys in sorted order.
func ExportDotenv(s *Store, projectID string, kind InstanceKind) (string, error) {
	vars, err := DecryptInstance(s, projectID, kind)
	if err != nil {
		return "", err
	}
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&b, "%s=%s\n", key, vars[key])
	}
	return b.String(), nil
}
