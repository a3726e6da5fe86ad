package compile

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/ycwu/slide2thesis/internal/workdir"
)

func TestSelectChapterFiles(t *testing.T) {
	dir, err := workdir.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c := New(dir, nil)

	t.Run("no chapters", func(t *testing.T) {
		if _, err := c.SelectChapterFiles(); !errors.Is(err, ErrNoChapterFiles) {
			t.Errorf("SelectChapterFiles() error = %v, want ErrNoChapterFiles", err)
		}
	})

	// Mixed variants: introduction has all three, methods only cited,
	// conclusions only plain. Absent categories are omitted.
	write := func(name string) {
		t.Helper()
		if err := dir.Write(name, "x"); err != nil {
			t.Fatal(err)
		}
	}
	write(workdir.ChapterFile(workdir.Introduction))
	write(workdir.CitedChapterFile(workdir.Introduction))
	write(workdir.FiguresChapterFile(workdir.Introduction))
	write(workdir.CitedChapterFile(workdir.Methods))
	write(workdir.ChapterFile(workdir.Conclusions))

	files, err := c.SelectChapterFiles()
	if err != nil {
		t.Fatalf("SelectChapterFiles() error = %v", err)
	}

	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	want := []string{
		"introduction_chapter_with_figures.md",
		"methods_chapter_cited.md",
		"conclusions_chapter.md",
	}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("file %d = %q, want %q", i, names[i], want[i])
		}
	}
}
