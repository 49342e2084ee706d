// Package components holds the panes of the interactive viewer.
package components

import (
	"fmt"

	"github.com/interpretive-systems/diffkit/internal/gitx"
)

// FileList manages the left pane file list.
type FileList struct {
	files    []gitx.FileChange
	selected int
	offset   int
}

// NewFileList creates a new file list.
func NewFileList() *FileList {
	return &FileList{}
}

// SetFiles replaces the list, keeping the selection on the same path when it is still listed.
func (f *FileList) SetFiles(files []gitx.FileChange) {
	var keep string
	if sel := f.SelectedFile(); sel != nil {
		keep = sel.Path
	}
	f.files = files
	f.selected = 0
	for i, fc := range files {
		if fc.Path == keep {
			f.selected = i
			break
		}
	}
}

// Files returns the current file list.
func (f *FileList) Files() []gitx.FileChange {
	return f.files
}

// Selected returns the currently selected file index.
func (f *FileList) Selected() int {
	return f.selected
}

// SelectedFile returns the currently selected file, or nil.
func (f *FileList) SelectedFile() *gitx.FileChange {
	if f.selected < 0 || f.selected >= len(f.files) {
		return nil
	}
	return &f.files[f.selected]
}

// Select moves the selection to index i of the visible window. It reports whether the selection changed.
func (f *FileList) Select(row int) bool {
	i := f.offset + row
	if i < 0 || i >= len(f.files) || i == f.selected {
		return false
	}
	f.selected = i
	return true
}

// MoveSelection moves the selection by delta.
func (f *FileList) MoveSelection(delta int) bool {
	if len(f.files) == 0 {
		return false
	}
	sel := min(max(f.selected+delta, 0), len(f.files)-1)
	changed := sel != f.selected
	f.selected = sel
	return changed
}

// GoToTop moves selection to the first file.
func (f *FileList) GoToTop() bool {
	return f.MoveSelection(-len(f.files))
}

// GoToBottom moves selection to the last file.
func (f *FileList) GoToBottom() bool {
	return f.MoveSelection(len(f.files))
}

// PageUp moves the selection up one page.
func (f *FileList) PageUp(visible int) bool {
	return f.MoveSelection(-max(visible-1, 1))
}

// PageDown moves the selection down one page.
func (f *FileList) PageDown(visible int) bool {
	return f.MoveSelection(max(visible-1, 1))
}

// EnsureVisible ensures the selected item is visible.
func (f *FileList) EnsureVisible(visible int) {
	if len(f.files) == 0 || visible <= 0 {
		f.offset = 0
		return
	}
	maxStart := max(len(f.files)-visible, 0)
	if f.selected < f.offset {
		f.offset = f.selected
	} else if f.selected >= f.offset+visible {
		f.offset = f.selected - visible + 1
	}
	f.offset = min(max(f.offset, 0), maxStart)
}

// Render renders the file list to lines.
func (f *FileList) Render(height int) []string {
	if len(f.files) == 0 {
		return []string{"No changes detected"}
	}
	f.EnsureVisible(height)
	end := min(f.offset+height, len(f.files))
	lines := make([]string, 0, end-f.offset)
	for i := f.offset; i < end; i++ {
		file := f.files[i]
		marker := "  "
		if i == f.selected {
			marker = "> "
		}
		lines = append(lines, fmt.Sprintf("%s%s %s", marker, FileStatusLabel(file), file.Path))
	}
	return lines
}

// FileStatusLabel returns a short status label for a file: the change kind, plus S when the change is staged.
func FileStatusLabel(f gitx.FileChange) string {
	label := f.Status()
	if f.Staged {
		label += "S"
	} else {
		label += " "
	}
	return label
}
