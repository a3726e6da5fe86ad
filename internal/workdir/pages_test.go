package workdir

import (
	"reflect"
	"testing"
)

func TestParseExtractedText(t *testing.T) {
	content := "*Page 1*:\nFirst page text.\nSecond line.\n\n*Page 2*:\nSecond page.\n"
	data := ParseExtractedText(content)

	if len(data) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(data))
	}
	if _, ok := data["*Page 1*"]; !ok {
		t.Error("missing *Page 1* key")
	}
}

func TestPageTextVariants(t *testing.T) {
	for _, key := range []string{"Page 4", "*Page 4*", "Page 4:"} {
		data := map[string]string{key: "content"}
		text, ok := PageText(data, 4)
		if !ok || text != "content" {
			t.Errorf("PageText() with key %q = (%q, %v)", key, text, ok)
		}
	}

	if _, ok := PageText(map[string]string{"page 4": "x"}, 4); ok {
		t.Error("lowercase key should not match")
	}
}

func TestFormatExtractedTextRoundTrip(t *testing.T) {
	pages := map[int]string{2: "two", 1: "one"}
	formatted := FormatExtractedText(pages)

	parsed := ParseExtractedText(formatted)
	for n, want := range pages {
		got, ok := PageText(parsed, n)
		if !ok {
			t.Fatalf("page %d missing after round trip", n)
		}
		// Trailing blank line from the block separator.
		if got != want && got != want+"\n" {
			t.Errorf("page %d = %q, want %q", n, got, want)
		}
	}
}

func TestSectionPageNumbers(t *testing.T) {
	section := "Page 3:\nsome text\n\n\nPage 1:\nmore\nPage 3:\ndupe\n"
	got := SectionPageNumbers(section)
	want := []int{1, 3}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SectionPageNumbers() = %v, want %v", got, want)
	}
}

func TestPageImageNumber(t *testing.T) {
	if n, ok := PageImageNumber("page_12.jpg"); !ok || n != 12 {
		t.Errorf("PageImageNumber(page_12.jpg) = (%d, %v)", n, ok)
	}
	for _, name := range []string{"page_12_cropped.jpg", "page_.jpg", "thesis.pdf", "page_5.png"} {
		if _, ok := PageImageNumber(name); ok {
			t.Errorf("PageImageNumber(%q) matched, want no match", name)
		}
	}
}
