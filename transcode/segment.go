package transcode

import (
	"math"

	"github.com/RyanBlaney/sonido-pitch/algorithms/common"
	"github.com/RyanBlaney/sonido-pitch/notes"
)

// Segment is the stretch of audio under one note. Samples aliases the PCM
// buffer it was cut from.
type Segment struct {
	Index   int
	Start   int
	End     int
	Samples []float64
}

// SampleIndex converts a millisecond position into a sample index, rounding
// halves to even.
func SampleIndex(ms float64, sampleRate int) int {
	return int(math.RoundToEven(ms * float64(sampleRate) / 1000))
}

// SegmentNotes cuts pcm into one segment per note event. Boundaries are
// clamped to the buffer, so notes past the end of the audio yield empty
// segments rather than errors.
func SegmentNotes(pcm []float64, sampleRate int, events []notes.NoteEvent) []Segment {
	segments := make([]Segment, len(events))
	for i, ev := range events {
		start := common.Clamp(SampleIndex(ev.StartMs, sampleRate), 0, len(pcm))
		end := common.Clamp(SampleIndex(ev.EndMs, sampleRate), start, len(pcm))
		segments[i] = Segment{
			Index:   i,
			Start:   start,
			End:     end,
			Samples: pcm[start:end:end],
		}
	}
	return segments
}
