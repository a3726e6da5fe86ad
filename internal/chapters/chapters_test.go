package chapters

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ycwu/slide2thesis/internal/providers"
	"github.com/ycwu/slide2thesis/internal/workdir"
)

func newDir(t *testing.T) workdir.Dir {
	t.Helper()
	dir, err := workdir.New(t.TempDir())
	if err != nil {
		t.Fatalf("workdir.New() error = %v", err)
	}
	return dir
}

func TestRunSkipsMissingSections(t *testing.T) {
	dir := newDir(t)
	if err := dir.Write(workdir.SectionFile(workdir.Introduction), "Page 1:\nintro text\n"); err != nil {
		t.Fatal(err)
	}

	mock := providers.NewMock("# Introduction\n\nGenerated content.")
	g := New(mock, dir, 2, nil)

	if err := g.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !dir.Exists(workdir.ChapterFile(workdir.Introduction)) {
		t.Error("expected introduction chapter")
	}
	for _, category := range []workdir.Category{workdir.Methods, workdir.Results, workdir.Conclusions} {
		if dir.Exists(workdir.ChapterFile(category)) {
			t.Errorf("unexpected chapter for %s with no section", category)
		}
	}
}

func TestRunNoSections(t *testing.T) {
	dir := newDir(t)
	g := New(providers.NewMock("x"), dir, 1, nil)

	if err := g.Run(context.Background()); !errors.Is(err, ErrNoChapters) {
		t.Errorf("Run() error = %v, want ErrNoChapters", err)
	}
}

func TestGeneratePassCount(t *testing.T) {
	dir := newDir(t)
	if err := dir.Write(workdir.SectionFile(workdir.Methods), "Page 3:\nmethods text\n"); err != nil {
		t.Fatal(err)
	}

	// Methods gets draft, expand and polish passes.
	mock := providers.NewMock("# Methods\n\nContent.")
	g := New(mock, dir, 1, nil)
	if err := g.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := mock.Calls(); got != 3 {
		t.Errorf("methods chapter used %d passes, want 3", got)
	}
}

func TestGenerateConclusionsSkipsExpansion(t *testing.T) {
	dir := newDir(t)
	if err := dir.Write(workdir.SectionFile(workdir.Conclusions), "Page 9:\nwrap up\n"); err != nil {
		t.Fatal(err)
	}

	mock := providers.NewMock("# Conclusions\n\nContent.")
	g := New(mock, dir, 1, nil)
	if err := g.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := mock.Calls(); got != 2 {
		t.Errorf("conclusions chapter used %d passes, want 2 (draft + polish)", got)
	}
}

func TestChapterStripsFences(t *testing.T) {
	dir := newDir(t)
	if err := dir.Write(workdir.SectionFile(workdir.Introduction), "Page 1:\ntext\n"); err != nil {
		t.Fatal(err)
	}

	mock := providers.NewMock("```markdown\n# Introduction\n\nBody.\n```")
	g := New(mock, dir, 1, nil)
	if err := g.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	content, _, err := dir.Read(workdir.ChapterFile(workdir.Introduction))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(content, "```") {
		t.Errorf("chapter still contains code fences:\n%s", content)
	}
	if !strings.HasPrefix(content, "# Introduction") {
		t.Errorf("chapter should start with the title:\n%s", content)
	}
}

func TestProviderFailureDoesNotBlockSiblings(t *testing.T) {
	dir := newDir(t)
	if err := dir.Write(workdir.SectionFile(workdir.Introduction), "Page 1:\ntext\n"); err != nil {
		t.Fatal(err)
	}

	mock := &providers.Mock{Err: errors.New("boom")}
	g := New(mock, dir, 1, nil)

	if err := g.Run(context.Background()); !errors.Is(err, ErrNoChapters) {
		t.Errorf("Run() error = %v, want ErrNoChapters when every chapter fails", err)
	}
}
