package notes

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Render rebuilds the note file text with the project's current pitches.
func (p *Project) Render() string {
	var sb strings.Builder
	next := 0
	for i, line := range p.lines {
		if next < len(p.noteLines) && p.noteLines[next] == i {
			content, eol := splitEOL(line)
			tokens := strings.Split(content, " ")
			tokens[3] = strconv.Itoa(p.notes[next].Pitch)
			sb.WriteString(strings.Join(tokens, " "))
			sb.WriteString(eol)
			next++
			continue
		}
		sb.WriteString(line)
	}
	return sb.String()
}

// WriteTo writes the note file in its original encoding.
func (p *Project) WriteTo(w io.Writer) (int64, error) {
	data, err := encodeText(p.Render(), p.encoding)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// Save writes the note file to path. The content goes to a temporary file in
// the same directory first and is renamed into place, so a failed save never
// leaves a partial file behind.
func (p *Project) Save(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary note file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := p.WriteTo(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write note file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write note file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to set note file permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move note file into place: %w", err)
	}
	return nil
}
