package workdir

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCategoryStem(t *testing.T) {
	if got := RelatedWorks.Stem(); got != "related_works" {
		t.Errorf("Stem() = %q, want related_works", got)
	}
	if got := Introduction.Stem(); got != "introduction" {
		t.Errorf("Stem() = %q, want introduction", got)
	}
}

func TestArtifactNames(t *testing.T) {
	if got := SectionFile(RelatedWorks); got != "related_works_section.txt" {
		t.Errorf("SectionFile() = %q", got)
	}
	if got := ChapterFile(Methods); got != "methods_chapter.md" {
		t.Errorf("ChapterFile() = %q", got)
	}
	if got := CitedChapterFile(Methods); got != "methods_chapter_cited.md" {
		t.Errorf("CitedChapterFile() = %q", got)
	}
	if got := FiguresChapterFile(Methods); got != "methods_chapter_with_figures.md" {
		t.Errorf("FiguresChapterFile() = %q", got)
	}
	if got := PageImageFile(5); got != "page_5.jpg" {
		t.Errorf("PageImageFile() = %q", got)
	}
}

func TestReadMissing(t *testing.T) {
	dir, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_, ok, err := dir.Read("nope.txt")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if ok {
		t.Error("expected ok=false for missing artifact")
	}
}

func TestReadSection(t *testing.T) {
	dir, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	t.Run("absent", func(t *testing.T) {
		_, ok, err := dir.ReadSection(Methods)
		if err != nil || ok {
			t.Errorf("ReadSection() = ok=%v err=%v, want absent", ok, err)
		}
	})

	t.Run("whitespace only", func(t *testing.T) {
		if err := dir.Write(SectionFile(Methods), "  \n\t\n"); err != nil {
			t.Fatal(err)
		}
		_, ok, err := dir.ReadSection(Methods)
		if err != nil {
			t.Fatalf("ReadSection() error = %v", err)
		}
		if ok {
			t.Error("whitespace-only section should read as absent")
		}
	})

	t.Run("present", func(t *testing.T) {
		if err := dir.Write(SectionFile(Results), "Page 3:\ntext\n"); err != nil {
			t.Fatal(err)
		}
		content, ok, err := dir.ReadSection(Results)
		if err != nil || !ok {
			t.Fatalf("ReadSection() = ok=%v err=%v", ok, err)
		}
		if content == "" {
			t.Error("expected section content")
		}
	})
}

func TestResolveChapterPriority(t *testing.T) {
	dir, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	write := func(name string) {
		t.Helper()
		if err := os.WriteFile(dir.Path(name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if _, ok := dir.ResolveChapter(Methods); ok {
		t.Fatal("expected no chapter before any variant exists")
	}

	write(ChapterFile(Methods))
	path, ok := dir.ResolveChapter(Methods)
	if !ok || filepath.Base(path) != "methods_chapter.md" {
		t.Errorf("ResolveChapter() = %q, want plain chapter", path)
	}

	write(CitedChapterFile(Methods))
	path, _ = dir.ResolveChapter(Methods)
	if filepath.Base(path) != "methods_chapter_cited.md" {
		t.Errorf("ResolveChapter() = %q, want cited chapter", path)
	}

	write(FiguresChapterFile(Methods))
	path, _ = dir.ResolveChapter(Methods)
	if filepath.Base(path) != "methods_chapter_with_figures.md" {
		t.Errorf("ResolveChapter() = %q, want with_figures chapter", path)
	}
}
