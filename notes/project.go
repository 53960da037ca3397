// Package notes reads and rewrites karaoke note files: a "#KEY:VALUE" header
// followed by beat-timed note lines. Only the pitch token of a note line is
// ever rewritten; every other byte survives a load/save round trip.
package notes

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// msPerBeatUnit converts beats to milliseconds: 60000 ms per minute divided
// into four subdivisions per quarter note.
const msPerBeatUnit = 15000.0

// PitchClasses is the number of chromatic pitch classes.
const PitchClasses = 12

// NoteEvent is one singable note with absolute timing.
type NoteEvent struct {
	StartMs float64
	EndMs   float64
	Pitch   int // pitch class 0-11
	Line    int // 1-based line number in the note file
}

// DurationMs returns the note length in milliseconds.
func (n NoteEvent) DurationMs() float64 {
	return n.EndMs - n.StartMs
}

// Metadata holds the header of a note file.
type Metadata struct {
	BPM   float64
	Gap   float64
	Audio string

	headers map[string]string
	order   []string
}

// Get returns a raw header value. Keys are case-insensitive and given without
// the leading '#'.
func (m Metadata) Get(key string) (string, bool) {
	v, ok := m.headers[strings.ToUpper(key)]
	return v, ok
}

// Keys returns the header keys in file order.
func (m Metadata) Keys() []string {
	return append([]string(nil), m.order...)
}

// Project is the immutable result of parsing one note file.
type Project struct {
	Path string
	Dir  string
	Meta Metadata

	notes     []NoteEvent
	lines     []string // raw lines including their line endings
	noteLines []int    // index into lines for every note
	encoding  textEncoding
}

// Load reads and parses a note file.
func Load(path string, opts ...Option) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read note file: %w", err)
	}
	p, err := Parse(data, filepath.Dir(path), opts...)
	if err != nil {
		setPath(err, path)
		return nil, err
	}
	p.Path = path
	return p, nil
}

func setPath(err error, path string) {
	switch e := err.(type) {
	case *FormatError:
		e.Path = path
	case *EncodingError:
		e.Path = path
	}
}

// Parse parses note file contents. dir is the directory the audio reference
// is resolved against.
func Parse(data []byte, dir string, opts ...Option) (*Project, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	text, enc, err := decodeText("", data, o)
	if err != nil {
		return nil, err
	}

	p := &Project{
		Dir:      dir,
		lines:    splitLines(text),
		encoding: enc,
		Meta:     Metadata{headers: make(map[string]string)},
	}

	var hasBPM, hasGap bool
	for i, line := range p.lines {
		lineNo := i + 1
		content, _ := splitEOL(line)

		switch {
		case strings.HasPrefix(content, "#") && len(p.notes) == 0:
			key, value, ok := strings.Cut(content, ":")
			if !ok {
				return nil, &FormatError{Line: lineNo, Msg: fmt.Sprintf("header line %q has no ':'", content)}
			}
			key = strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(key, "#")))
			switch key {
			case "BPM":
				bpm, err := parseDecimal(value)
				if err != nil {
					return nil, &FormatError{Line: lineNo, Msg: "invalid BPM", Err: err}
				}
				if bpm <= 0 {
					return nil, &FormatError{Line: lineNo, Msg: fmt.Sprintf("BPM must be positive, got %v", bpm)}
				}
				p.Meta.BPM, hasBPM = bpm, true
			case "GAP":
				gap, err := parseDecimal(value)
				if err != nil {
					return nil, &FormatError{Line: lineNo, Msg: "invalid GAP", Err: err}
				}
				p.Meta.Gap, hasGap = gap, true
			case "AUDIO":
				p.Meta.Audio = value
			case "MP3":
				if p.Meta.Audio == "" {
					p.Meta.Audio = value
				}
			}
			if _, seen := p.Meta.headers[key]; !seen {
				p.Meta.order = append(p.Meta.order, key)
			}
			p.Meta.headers[key] = value

		case isNoteLine(content):
			if !hasBPM || !hasGap || p.Meta.Audio == "" {
				return nil, &FormatError{Line: lineNo, Msg: "note line before BPM, GAP and audio reference are set"}
			}
			note, err := parseNote(content, p.Meta)
			if err != nil {
				err.Line = lineNo
				return nil, err
			}
			note.Line = lineNo
			p.notes = append(p.notes, note)
			p.noteLines = append(p.noteLines, i)
		}
	}

	return p, nil
}

func isNoteLine(content string) bool {
	return strings.HasPrefix(content, ":") || strings.HasPrefix(content, "*")
}

func parseNote(content string, meta Metadata) (NoteEvent, *FormatError) {
	tokens := strings.Split(content, " ")
	if len(tokens) < 4 {
		return NoteEvent{}, &FormatError{Msg: fmt.Sprintf("note line %q needs start, duration and pitch", content)}
	}

	startBeat, err := parseFinite(tokens[1])
	if err != nil {
		return NoteEvent{}, &FormatError{Msg: "invalid start beat", Err: err}
	}
	duration, err := parseFinite(tokens[2])
	if err != nil {
		return NoteEvent{}, &FormatError{Msg: "invalid duration", Err: err}
	}
	pitch, err := strconv.Atoi(strings.TrimSpace(tokens[3]))
	if err != nil {
		return NoteEvent{}, &FormatError{Msg: "invalid pitch", Err: err}
	}

	beatMs := msPerBeatUnit / meta.BPM
	return NoteEvent{
		StartMs: meta.Gap + startBeat*beatMs,
		EndMs:   meta.Gap + (startBeat+duration)*beatMs,
		Pitch:   PitchClass(pitch),
	}, nil
}

// PitchClass reduces any integer pitch to 0-11.
func PitchClass(pitch int) int {
	return ((pitch % PitchClasses) + PitchClasses) % PitchClasses
}

var errNotFinite = errors.New("value is not finite")

// parseDecimal accepts both "120.5" and "120,5".
func parseDecimal(value string) (float64, error) {
	return parseFinite(strings.ReplaceAll(value, ",", "."))
}

// parseFinite rejects NaN and infinities, which ParseFloat accepts.
func parseFinite(value string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q: %w", value, errNotFinite)
	}
	return f, nil
}

// Notes returns a copy of the note events in file order.
func (p *Project) Notes() []NoteEvent {
	return append([]NoteEvent(nil), p.notes...)
}

// Len returns the number of notes.
func (p *Project) Len() int {
	return len(p.notes)
}

// Pitches returns the pitch classes in file order.
func (p *Project) Pitches() []int {
	pitches := make([]int, len(p.notes))
	for i, n := range p.notes {
		pitches[i] = n.Pitch
	}
	return pitches
}

// UpdatePitches returns a copy of the project with new pitch classes. The
// receiver is left untouched.
func (p *Project) UpdatePitches(pitches []int) (*Project, error) {
	if len(pitches) != len(p.notes) {
		return nil, &SizeMismatchError{Want: len(p.notes), Got: len(pitches)}
	}
	updated := *p
	updated.notes = make([]NoteEvent, len(p.notes))
	for i, n := range p.notes {
		n.Pitch = PitchClass(pitches[i])
		updated.notes[i] = n
	}
	return &updated, nil
}

// Encoding returns the text encoding the file was read with.
func (p *Project) Encoding() string {
	return p.encoding.Name()
}

// AudioPath resolves the audio reference against the note file's directory.
func (p *Project) AudioPath() (string, error) {
	audio := strings.TrimSpace(p.Meta.Audio)
	if audio == "" {
		return "", &FormatError{Path: p.Path, Msg: "no AUDIO or MP3 header"}
	}
	if filepath.IsAbs(audio) {
		return audio, nil
	}
	return filepath.Join(p.Dir, audio), nil
}

// splitLines splits text after every "\n", "\r\n" or lone "\r", keeping the
// terminators.
func splitLines(text string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			lines = append(lines, text[start:i+1])
			start = i + 1
		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				continue
			}
			lines = append(lines, text[start:i+1])
			start = i + 1
		}
	}
	if start < len(text) {
		lines = append(lines, text[start:])
	}
	return lines
}

func splitEOL(line string) (content, eol string) {
	trimmed := strings.TrimRight(line, "\r\n")
	return trimmed, line[len(trimmed):]
}
