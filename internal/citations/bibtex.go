package citations

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/ycwu/slide2thesis/internal/pubmed"
)

// maxBibAuthors caps the rendered author list; longer lists are truncated
// with an "and others" suffix per BibTeX convention.
const maxBibAuthors = 10

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]`)

// keyRegistry is the run-wide used-keys set. Reservation is check-then-insert
// under one lock so two chapter workers can never mint the same key.
type keyRegistry struct {
	mu   sync.Mutex
	used map[string]bool
}

func newKeyRegistry() *keyRegistry {
	return &keyRegistry{used: make(map[string]bool)}
}

// reserve returns base if unused, otherwise base with the smallest numeric
// suffix that is free, and marks the result as taken.
func (r *keyRegistry) reserve(base string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := base
	for n := 1; r.used[key]; n++ {
		key = fmt.Sprintf("%s%d", base, n)
	}
	r.used[key] = true
	return key
}

// bibKeyBase derives the naive citation key: first author surname plus year,
// lowercased and stripped to ASCII alphanumerics (which also drops
// diacritics). Papers without authors fall back to their PMID.
func bibKeyBase(paper *pubmed.Paper) string {
	var base string
	if len(paper.Authors) > 0 {
		surname, _, _ := strings.Cut(paper.Authors[0], ",")
		base = surname + paper.Year
	} else {
		base = "pmid" + paper.PMID + paper.Year
	}
	return nonAlnumRe.ReplaceAllString(strings.ToLower(base), "")
}

// latexEscaper escapes BibTeX field values. A single-pass Replacer keeps the
// backslash expansion from being re-escaped by the brace rules.
var latexEscaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`&`, `\&`,
	`%`, `\%`,
	`$`, `\$`,
	`#`, `\#`,
	`_`, `\_`,
	`{`, `\{`,
	`}`, `\}`,
	`~`, `\textasciitilde{}`,
	`^`, `\textasciicircum{}`,
)

func escapeLatex(s string) string {
	return latexEscaper.Replace(s)
}

// formatBibEntry renders one @article entry. The DOI field is omitted when
// the record has none.
func formatBibEntry(key string, paper *pubmed.Paper) string {
	var authors []string
	for _, a := range paper.Authors {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		authors = append(authors, escapeLatex(a))
	}
	if len(authors) > maxBibAuthors {
		authors = append(authors[:maxBibAuthors], "others")
	}
	authorStr := strings.Join(authors, " and ")
	if authorStr == "" {
		authorStr = "Unknown Author"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "@article{%s,\n", key)
	fmt.Fprintf(&b, "  author = {%s},\n", authorStr)
	fmt.Fprintf(&b, "  title = {%s},\n", escapeLatex(paper.Title))
	fmt.Fprintf(&b, "  journal = {%s},\n", escapeLatex(paper.Journal))
	fmt.Fprintf(&b, "  year = {%s},\n", paper.Year)
	if paper.DOI != "" {
		fmt.Fprintf(&b, "  doi = {%s},\n", paper.DOI)
	}
	fmt.Fprintf(&b, "  pmid = {%s}\n}", paper.PMID)
	return b.String()
}
