// Package citations scans generated chapters for claims needing references,
// resolves them against PubMed, and rewrites the chapters with inline
// citation markers plus a shared BibTeX bibliography.
package citations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ycwu/slide2thesis/internal/jobs"
	"github.com/ycwu/slide2thesis/internal/llmjson"
	"github.com/ycwu/slide2thesis/internal/providers"
	"github.com/ycwu/slide2thesis/internal/pubmed"
	"github.com/ycwu/slide2thesis/internal/workdir"
)

// ErrNoChapterFiles indicates the chapter stage left nothing to cite.
var ErrNoChapterFiles = errors.New("no chapter files found")

// ErrNoPapersFound indicates the whole run resolved zero papers.
var ErrNoPapersFound = errors.New("no citations were generated for any chapter")

// eligible marks the categories that get citation analysis. All others are
// passed through byte for byte under their cited filename.
var eligible = map[workdir.Category]bool{
	workdir.Introduction: true,
	workdir.RelatedWorks: true,
	workdir.Results:      true,
}

const analysisPrompt = `Analyze this thesis text and identify sentences that likely require citations.
Focus on factual claims, established concepts, technical challenges, and specific examples.

**IMPORTANT**: Do not include citations within mathematical equations or environments.

Respond with ONLY a valid JSON object in this exact format:
{
    "sentences": [
        {
            "sentence": "exact sentence from text",
            "reason": "brief reason for citation",
            "key_terms": ["term1", "term2"]
        }
    ]
}`

var analysisSchema = llmjson.MustSchema("citation_analysis.json", `{
	"type": "object",
	"required": ["sentences"],
	"properties": {
		"sentences": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["sentence", "key_terms"],
				"properties": {
					"sentence": {"type": "string"},
					"reason": {"type": "string"},
					"key_terms": {"type": "array", "items": {"type": "string"}}
				}
			}
		}
	}
}`)

type sentenceEntry struct {
	Sentence string   `json:"sentence"`
	Reason   string   `json:"reason"`
	KeyTerms []string `json:"key_terms"`
}

type analysis struct {
	Sentences []sentenceEntry `json:"sentences"`
}

// Engine runs the citation stage.
type Engine struct {
	provider   providers.Provider
	pubmed     *pubmed.Client
	dir        workdir.Dir
	workers    int
	maxResults int
	logger     *slog.Logger

	keys *keyRegistry

	mu      sync.Mutex
	entries []string
	papers  int
}

// New creates a citation Engine. maxResults caps PubMed candidates per
// flagged sentence.
func New(provider providers.Provider, pm *pubmed.Client, dir workdir.Dir, workers, maxResults int, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if maxResults < 1 {
		maxResults = 3
	}
	return &Engine{
		provider:   provider,
		pubmed:     pm,
		dir:        dir,
		workers:    workers,
		maxResults: maxResults,
		logger:     logger.With("stage", "citations"),
		keys:       newKeyRegistry(),
	}
}

// Run processes every chapter file. Eligible chapters are analyzed, resolved
// and rewritten with markers; the rest are copied unchanged to their cited
// filename. One shared references.bib collects every resolved paper. A
// chapter failure is logged and skipped; the stage fails when there are no
// chapter files at all or when the run resolves zero papers.
func (e *Engine) Run(ctx context.Context) error {
	var tasks []jobs.Task
	var processed atomic.Int64
	for _, category := range workdir.Categories {
		category := category
		if !e.dir.Exists(workdir.ChapterFile(category)) {
			continue
		}
		tasks = append(tasks, jobs.Task{
			Name: category.Stem(),
			Run: func(ctx context.Context) error {
				if err := e.processChapter(ctx, category); err != nil {
					return err
				}
				processed.Add(1)
				return nil
			},
		})
	}
	if len(tasks) == 0 {
		return ErrNoChapterFiles
	}

	pool := jobs.NewPool(e.workers, e.logger)
	pool.Run(ctx, tasks)
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	entries, papers := e.entries, e.papers
	e.mu.Unlock()

	if papers == 0 {
		return ErrNoPapersFound
	}
	if err := e.dir.Write(workdir.BibliographyFile, strings.Join(entries, "\n\n")); err != nil {
		return err
	}
	e.logger.Info("citation pass complete", "chapters", processed.Load(), "papers", papers)
	return nil
}

func (e *Engine) processChapter(ctx context.Context, category workdir.Category) error {
	text, _, err := e.dir.Read(workdir.ChapterFile(category))
	if err != nil {
		return err
	}

	if !eligible[category] {
		e.logger.Info("copying chapter without citations", "category", category)
		return e.dir.Write(workdir.CitedChapterFile(category), text)
	}

	e.logger.Info("analyzing chapter for citations", "category", category)
	sentences := e.analyze(ctx, category, text)

	// Per-sentence lookups stay strictly sequential inside a chapter so the
	// Entrez pacing holds regardless of the chapter-level worker count.
	updated := text
	for i, entry := range sentences {
		keys := e.resolve(ctx, i, entry)
		if len(keys) == 0 {
			continue
		}
		updated = spliceMarker(updated, entry.Sentence, keys)
	}

	return e.dir.Write(workdir.CitedChapterFile(category), updated)
}

// analyze asks the provider which sentences need citations. Any failure,
// from the call itself to schema validation, degrades to zero sentences.
func (e *Engine) analyze(ctx context.Context, category workdir.Category, text string) []sentenceEntry {
	response, err := e.provider.Generate(ctx, analysisPrompt+"\n\nText:\n"+text, nil)
	if err != nil {
		e.logger.Warn("citation analysis call failed", "category", category, "error", err)
		return nil
	}
	var result analysis
	if err := llmjson.Decode(response, analysisSchema, &result); err != nil {
		e.logger.Warn("failed to parse citation analysis", "category", category, "error", err)
		return nil
	}
	return result.Sentences
}

// resolve searches PubMed for one flagged sentence and returns the citation
// keys of every paper it produced, appending their entries to the shared
// bibliography. Lookup errors are best-effort empty.
func (e *Engine) resolve(ctx context.Context, idx int, entry sentenceEntry) []string {
	if len(entry.KeyTerms) == 0 {
		return nil
	}
	query := strings.Join(entry.KeyTerms, " ") + " [Title/Abstract]"
	e.logger.Info("querying pubmed", "sentence", idx+1, "query", query)

	pmids, err := e.pubmed.Search(ctx, query, e.maxResults)
	if err != nil {
		e.logger.Warn("pubmed search failed", "query", query, "error", err)
		return nil
	}
	if len(pmids) == 0 {
		e.logger.Warn("no pubmed results", "query", query)
		return nil
	}

	var keys []string
	for _, pmid := range pmids {
		paper, err := e.pubmed.Fetch(ctx, pmid)
		if err != nil {
			e.logger.Warn("pubmed fetch failed", "pmid", pmid, "error", err)
			continue
		}
		key := e.keys.reserve(bibKeyBase(paper))
		keys = append(keys, key)

		e.mu.Lock()
		e.entries = append(e.entries, formatBibEntry(key, paper))
		e.papers++
		e.mu.Unlock()

		e.logger.Info("added paper", "key", key, "title", paper.Title, "year", paper.Year)
	}
	return keys
}

// spliceMarker inserts one composite citation marker at the first occurrence
// of sentence in text. When the sentence ends with terminal punctuation the
// marker lands before it joined with a non-breaking space, so the reference
// cannot wrap away from its claim. Sentences already followed by a marker
// are left alone.
func spliceMarker(text, sentence string, keys []string) string {
	sentence = strings.TrimSpace(sentence)
	if sentence == "" {
		return text
	}
	start := strings.Index(text, sentence)
	if start < 0 {
		return text
	}
	end := start + len(sentence)

	// Already annotated: marker immediately after the match.
	rest := strings.TrimLeft(text[end:], " \t")
	if strings.HasPrefix(rest, "[@") {
		return text
	}

	refs := make([]string, len(keys))
	for i, k := range keys {
		refs[i] = "@" + k
	}
	marker := fmt.Sprintf("[%s]", strings.Join(refs, "; "))

	last := sentence[len(sentence)-1]
	var annotated string
	if last == '.' || last == '!' || last == '?' {
		annotated = sentence[:len(sentence)-1] + "&nbsp;" + marker + string(last)
	} else {
		annotated = sentence + " " + marker
	}
	return text[:start] + annotated + text[end:]
}
