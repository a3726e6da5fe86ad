package citations

import (
	"strings"
	"testing"

	"github.com/ycwu/slide2thesis/internal/pubmed"
)

func TestBibKeyBase(t *testing.T) {
	t.Run("author and year", func(t *testing.T) {
		paper := &pubmed.Paper{Authors: []string{"Doe, J"}, Year: "2021"}
		if got := bibKeyBase(paper); got != "doe2021" {
			t.Errorf("bibKeyBase() = %q, want doe2021", got)
		}
	})

	t.Run("diacritics stripped", func(t *testing.T) {
		paper := &pubmed.Paper{Authors: []string{"Müller, K"}, Year: "2019"}
		if got := bibKeyBase(paper); got != "mller2019" {
			t.Errorf("bibKeyBase() = %q, want mller2019", got)
		}
	})

	t.Run("no authors falls back to pmid", func(t *testing.T) {
		paper := &pubmed.Paper{PMID: "12345", Year: "2018"}
		if got := bibKeyBase(paper); got != "pmid123452018" {
			t.Errorf("bibKeyBase() = %q, want pmid123452018", got)
		}
	})
}

func TestKeyRegistryDisambiguates(t *testing.T) {
	reg := newKeyRegistry()
	first := reg.reserve("doe2021")
	second := reg.reserve("doe2021")
	third := reg.reserve("doe2021")

	if first != "doe2021" {
		t.Errorf("first key = %q, want doe2021", first)
	}
	if second != "doe20211" {
		t.Errorf("second key = %q, want doe20211", second)
	}
	if third != "doe20212" {
		t.Errorf("third key = %q, want doe20212", third)
	}
}

func TestEscapeLatex(t *testing.T) {
	got := escapeLatex(`A & B 100% $5 #1 a_b {x} ~ ^ \cmd`)
	for _, want := range []string{`\&`, `\%`, `\$`, `\#`, `\_`, `\{`, `\}`, `\textasciitilde{}`, `\textasciicircum{}`, `\textbackslash{}cmd`} {
		if !strings.Contains(got, want) {
			t.Errorf("escapeLatex() missing %q in %q", want, got)
		}
	}
}

func TestFormatBibEntry(t *testing.T) {
	paper := &pubmed.Paper{
		PMID:    "42",
		Title:   "Deep Learning & Biology",
		Authors: []string{"Smith, J", "Doe, K"},
		Journal: "Nature",
		Year:    "2020",
		DOI:     "10.1000/x",
	}
	entry := formatBibEntry("smith2020", paper)

	for _, want := range []string{
		"@article{smith2020,",
		"author = {Smith, J and Doe, K}",
		`title = {Deep Learning \& Biology}`,
		"journal = {Nature}",
		"year = {2020}",
		"doi = {10.1000/x}",
		"pmid = {42}",
	} {
		if !strings.Contains(entry, want) {
			t.Errorf("entry missing %q:\n%s", want, entry)
		}
	}
}

func TestFormatBibEntryTruncatesAuthors(t *testing.T) {
	paper := &pubmed.Paper{PMID: "1", Title: "T", Journal: "J", Year: "2020"}
	for i := 0; i < 12; i++ {
		paper.Authors = append(paper.Authors, "Author, X")
	}
	entry := formatBibEntry("author2020", paper)
	if !strings.Contains(entry, "and others") {
		t.Errorf("long author list should end with 'and others':\n%s", entry)
	}
	if got := strings.Count(entry, "Author, X"); got != maxBibAuthors {
		t.Errorf("entry lists %d authors, want %d", got, maxBibAuthors)
	}
}

func TestFormatBibEntryNoDOI(t *testing.T) {
	paper := &pubmed.Paper{PMID: "7", Title: "T", Journal: "J", Year: "1999"}
	entry := formatBibEntry("pmid71999", paper)
	if strings.Contains(entry, "doi =") {
		t.Errorf("entry should omit empty DOI:\n%s", entry)
	}
	if !strings.Contains(entry, "author = {Unknown Author}") {
		t.Errorf("entry should use Unknown Author placeholder:\n%s", entry)
	}
}
