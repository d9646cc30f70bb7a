package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// DirSource serves chapter text from a directory tree laid out as
// <root>/<bookID>/chapter-000.txt, chapter-001.txt, ... Files hold plain
// UTF-8 text with markup already stripped.
type DirSource struct {
	Root string
}

func chapterPath(root, bookID string, idx int) string {
	return filepath.Join(root, bookID, fmt.Sprintf("chapter-%03d.txt", idx))
}

// ChapterText implements ChapterSource.
func (d DirSource) ChapterText(ctx context.Context, bookID string, chapterIndex int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(chapterPath(d.Root, bookID, chapterIndex))
	if err != nil {
		return "", fmt.Errorf("read chapter %d of %s: %w", chapterIndex, bookID, err)
	}
	return string(data), nil
}

// Chapters counts consecutive chapter files for bookID starting at 0.
func (d DirSource) Chapters(bookID string) (int, error) {
	n := 0
	for {
		if _, err := os.Stat(chapterPath(d.Root, bookID, n)); err != nil {
			if os.IsNotExist(err) {
				return n, nil
			}
			return n, err
		}
		n++
	}
}
