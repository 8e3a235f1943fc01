// Package rules selects which CPK archives to process by matching a
// rule file of regular expressions (one per line) against file names
// in a cfg.bin catalog, then mapping matched files to the CPK archive
// names that contain them.
package rules

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/ievr/ievrtool/internal/cfgdb"
)

// Selection is the result of applying a rule file to a catalog: the
// set of CPK archive names to process and the individual file names
// that matched (dump extracts only members with those names).
type Selection struct {
	CpkNames      map[string]bool
	MatchedFiles  []string
}

// LoadFile reads one regex per line from path, skipping blank lines.
// Lines that fail to compile as regular expressions are reported to
// stderr and otherwise ignored, matching the original tool's
// best-effort rule parsing.
func LoadFile(path string) ([]*regexp.Regexp, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rules: open %s: %w", path, err)
	}
	defer f.Close()
	return parseRules(f)
}

func parseRules(r io.Reader) ([]*regexp.Regexp, error) {
	var out []*regexp.Regexp
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		re, err := regexp.Compile(line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: invalid regex %q, ignoring it: %v\n", line, err)
			continue
		}
		out = append(out, re)
	}
	return out, scanner.Err()
}

// Select applies every rule in rules against db's file names and
// returns the matching CPK archive names plus the individual files
// that matched, per the original selection behavior (dump.rs's
// select_requested_cpks): a CPK is selected the moment any one of its
// files matches any one rule.
func Select(db *cfgdb.Database, rules []*regexp.Regexp) *Selection {
	sel := &Selection{CpkNames: make(map[string]bool)}
	for _, re := range rules {
		for _, row := range db.Rows {
			if row.FileName == "" || row.CpkName == "" {
				continue
			}
			if re.MatchString(row.FileName) {
				sel.MatchedFiles = append(sel.MatchedFiles, row.FileName)
				sel.CpkNames[row.CpkName] = true
			}
		}
	}
	return sel
}

// FilterPaths keeps only the entries of paths whose base name appears
// in sel.CpkNames.
func FilterPaths(paths []string, sel *Selection) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if sel.CpkNames[baseName(p)] {
			out = append(out, p)
		}
	}
	return out
}

func baseName(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' || p[i] == '\\' {
			return p[i+1:]
		}
	}
	return p
}
