// Package mathfmt normalizes mathematical notation in generated chapter
// text. It is a best-effort filter: chapter generation applies it after
// polishing and falls back to the unformatted text if anything goes wrong,
// so nothing here may fail a chapter.
package mathfmt

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	displayMathRe = regexp.MustCompile(`(?s)\\\[.*?\\\]`)
	inlineMathRe  = regexp.MustCompile(`\$[^$]+\$`)
	parenMathRe   = regexp.MustCompile(`(?s)\\\(.*?\\\)`)
)

// unicodeToLatex maps bare unicode math symbols to LaTeX commands.
var unicodeToLatex = map[string]string{
	"≤": `\leq`, "≥": `\geq`, "≠": `\neq`, "≈": `\approx`,
	"±": `\pm`, "×": `\times`, "÷": `\div`, "∞": `\infty`,
	"∑": `\sum`, "∏": `\prod`, "∫": `\int`,
	"α": `\alpha`, "β": `\beta`, "γ": `\gamma`, "δ": `\delta`,
	"ε": `\epsilon`, "θ": `\theta`, "λ": `\lambda`, "μ": `\mu`,
	"π": `\pi`, "σ": `\sigma`, "φ": `\phi`, "ω": `\omega`,
}

// Format wraps bare unicode math symbols in inline math delimiters while
// leaving already-delimited math regions untouched.
func Format(content string) string {
	protected, blocks := protect(content)

	for sym, latex := range unicodeToLatex {
		protected = strings.ReplaceAll(protected, sym, "$"+latex+"$")
	}

	return restore(protected, blocks)
}

// protect swaps existing math regions for placeholders so the symbol pass
// cannot corrupt them.
func protect(content string) (string, map[string]string) {
	blocks := make(map[string]string)
	counter := 0
	swap := func(match string) string {
		placeholder := fmt.Sprintf("\x00MATH_%d\x00", counter)
		blocks[placeholder] = match
		counter++
		return placeholder
	}
	content = displayMathRe.ReplaceAllStringFunc(content, swap)
	content = inlineMathRe.ReplaceAllStringFunc(content, swap)
	content = parenMathRe.ReplaceAllStringFunc(content, swap)
	return content, blocks
}

func restore(content string, blocks map[string]string) string {
	for placeholder, block := range blocks {
		content = strings.ReplaceAll(content, placeholder, block)
	}
	return content
}
