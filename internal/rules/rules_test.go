package rules

import (
	"strings"
	"testing"

	"github.com/ievr/ievrtool/internal/cfgdb"
)

func TestParseRulesSkipsBlankAndInvalidLines(t *testing.T) {
	src := "^chr_.*\\.bin$\n\n[invalid(\nboss_\\d+\n"
	res, err := parseRules(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parseRules: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("got %d compiled rules, want 2 (blank line and invalid regex skipped)", len(res))
	}
}

func TestSelectMatchesAndMapsToArchives(t *testing.T) {
	db := &cfgdb.Database{Rows: []cfgdb.Row{
		{FileName: "chr_hero.bin", CpkName: "characters.cpk"},
		{FileName: "chr_villain.bin", CpkName: "characters.cpk"},
		{FileName: "map_town.bin", CpkName: "maps.cpk"},
		{FileName: "", CpkName: "empty.cpk"},
	}}

	rules, err := parseRules(strings.NewReader(`^chr_`))
	if err != nil {
		t.Fatal(err)
	}

	sel := Select(db, rules)
	if len(sel.CpkNames) != 1 || !sel.CpkNames["characters.cpk"] {
		t.Fatalf("CpkNames = %v, want {characters.cpk}", sel.CpkNames)
	}
	if len(sel.MatchedFiles) != 2 {
		t.Fatalf("MatchedFiles = %v, want 2 entries", sel.MatchedFiles)
	}
}

func TestFilterPathsKeepsOnlySelectedArchives(t *testing.T) {
	sel := &Selection{CpkNames: map[string]bool{"characters.cpk": true}}
	paths := []string{
		"/data/characters.cpk",
		`C:\game\maps.cpk`,
		"/data/characters.cpk.bak",
	}
	got := FilterPaths(paths, sel)
	if len(got) != 1 || got[0] != "/data/characters.cpk" {
		t.Fatalf("FilterPaths = %v, want only /data/characters.cpk", got)
	}
}

func TestBaseNameHandlesBothSeparators(t *testing.T) {
	cases := map[string]string{
		"/a/b/c.cpk":   "c.cpk",
		`C:\a\b\c.cpk`: "c.cpk",
		"c.cpk":        "c.cpk",
	}
	for in, want := range cases {
		if got := baseName(in); got != want {
			t.Fatalf("baseName(%q) = %q, want %q", in, got, want)
		}
	}
}
