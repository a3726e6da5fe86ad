package workdir

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	pageHeaderRe  = regexp.MustCompile(`^\*Page \d+\*:$`)
	sectionPageRe = regexp.MustCompile(`Page (\d+):`)
	pageImageRe   = regexp.MustCompile(`^page_(\d+)\.jpg$`)
)

// ParseExtractedText parses the extracted_text.txt format into a map keyed by
// the page header as written ("*Page N*"). Page blocks are delimited by
// "*Page N*:" header lines.
func ParseExtractedText(content string) map[string]string {
	data := make(map[string]string)
	var currentKey string
	var currentText []string

	flush := func() {
		if currentKey != "" && len(currentText) > 0 {
			data[currentKey] = strings.Join(currentText, "\n")
		}
	}

	for _, line := range strings.Split(content, "\n") {
		if pageHeaderRe.MatchString(strings.TrimSpace(line)) {
			flush()
			currentKey = strings.TrimSuffix(strings.TrimSpace(line), ":")
			currentText = currentText[:0]
			continue
		}
		if currentKey != "" {
			currentText = append(currentText, line)
		}
	}
	flush()
	return data
}

// PageText looks up a page's text by number, trying the known key spellings
// in order. Extraction and classification have historically disagreed on the
// exact header form, so consumers must match against this fixed variant set.
func PageText(data map[string]string, pageNum int) (string, bool) {
	for _, key := range []string{
		fmt.Sprintf("Page %d", pageNum),
		fmt.Sprintf("*Page %d*", pageNum),
		fmt.Sprintf("Page %d:", pageNum),
	} {
		if text, ok := data[key]; ok {
			return text, true
		}
	}
	return "", false
}

// FormatExtractedText renders page texts into the extracted_text.txt format.
// Pages are emitted in ascending page order.
func FormatExtractedText(pages map[int]string) string {
	nums := make([]int, 0, len(pages))
	for n := range pages {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	var b strings.Builder
	for _, n := range nums {
		fmt.Fprintf(&b, "*Page %d*:\n%s\n\n", n, pages[n])
	}
	return b.String()
}

// SectionPageNumbers extracts the distinct page numbers recorded in a section
// file via its "Page N:" entry headers.
func SectionPageNumbers(sectionContent string) []int {
	seen := make(map[int]bool)
	var nums []int
	for _, m := range sectionPageRe.FindAllStringSubmatch(sectionContent, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || seen[n] {
			continue
		}
		seen[n] = true
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// PageImageNumber parses the page number out of a "page_N.jpg" file name.
// Cropped variants and other files do not match.
func PageImageNumber(name string) (int, bool) {
	m := pageImageRe.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
