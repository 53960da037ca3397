package tonal

import (
	"fmt"

	"github.com/RyanBlaney/sonido-pitch/algorithms/common"
	"github.com/RyanBlaney/sonido-pitch/logging"
	"gonum.org/v1/gonum/mat"
)

var pitchNames = [PitchClasses]string{"C_", "C#", "D_", "D#", "E_", "F_", "F#", "G_", "G#", "A_", "A#", "B_"}

var keyNames = [PitchClasses]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// KeyEstimationResult contains the detected key and how it was reached
type KeyEstimationResult struct {
	Key       int       `json:"key"`       // Key number (0=C, 1=C#, ..., 11=B)
	KeyName   string    `json:"key_name"`  // Human-readable key name
	Scores    []float64 `json:"scores"`    // Weight of each key
	Histogram []float64 `json:"histogram"` // Pitch class counts
}

// KeyEstimator detects the pseudo key of a song from its note pitches and
// pulls out-of-key pitches back into it
type KeyEstimator struct {
	profile *KeyProfile
	logger  logging.Logger
}

// NewKeyEstimator creates a key estimator using the weighted profile
func NewKeyEstimator() *KeyEstimator {
	return NewKeyEstimatorWithProfile(WeightedKeyProfile())
}

// NewKeyEstimatorWithProfile creates a key estimator with a custom profile
func NewKeyEstimatorWithProfile(profile *KeyProfile) *KeyEstimator {
	if profile == nil {
		profile = WeightedKeyProfile()
	}
	return &KeyEstimator{
		profile: profile,
		logger: logging.WithFields(logging.Fields{
			"component": "key_estimator",
			"profile":   string(profile.Kind()),
		}),
	}
}

// Profile returns the profile in use
func (ke *KeyEstimator) Profile() *KeyProfile {
	return ke.profile
}

// EstimateKey weights the pitch histogram with every key row and picks the
// heaviest key. Ties go to the lowest key; an empty pitch list yields key 0.
func (ke *KeyEstimator) EstimateKey(pitches []int) KeyEstimationResult {
	hist := mat.NewVecDense(PitchClasses, nil)
	for _, p := range pitches {
		pc := common.Mod(p, PitchClasses)
		hist.SetVec(pc, hist.AtVec(pc)+1)
	}

	scores := mat.NewVecDense(PitchClasses, nil)
	scores.MulVec(ke.profile.table, hist)

	scoreData := make([]float64, PitchClasses)
	copy(scoreData, scores.RawVector().Data)
	histData := make([]float64, PitchClasses)
	copy(histData, hist.RawVector().Data)

	key := common.ArgMax(scoreData)

	ke.logger.Debug("Key estimated", logging.Fields{
		"key":     KeyName(key),
		"pitches": len(pitches),
		"score":   scoreData[key],
	})

	return KeyEstimationResult{
		Key:       key,
		KeyName:   KeyName(key),
		Scores:    scoreData,
		Histogram: histData,
	}
}

// DetectKey returns the most likely key for pitches
func (ke *KeyEstimator) DetectKey(pitches []int) int {
	return ke.EstimateKey(pitches).Key
}

// CorrectPitches moves every pitch that has no weight in key one semitone
// towards the heavier neighbour, preferring up on a tie. The input is not
// modified. One pass only: a moved pitch is not checked again.
func (ke *KeyEstimator) CorrectPitches(key int, pitches []int) []int {
	key = common.Mod(key, PitchClasses)
	corrected := make([]int, len(pitches))
	moved := 0

	for i, p := range pitches {
		pc := common.Mod(p, PitchClasses)
		if ke.profile.At(key, pc) != 0 {
			corrected[i] = pc
			continue
		}

		up := common.Mod(pc+1, PitchClasses)
		down := common.Mod(pc-1, PitchClasses)
		if ke.profile.At(key, up) >= ke.profile.At(key, down) {
			corrected[i] = up
		} else {
			corrected[i] = down
		}
		moved++
	}

	ke.logger.Debug("Pitches corrected", logging.Fields{
		"key":   KeyName(key),
		"moved": moved,
		"total": len(pitches),
	})

	return corrected
}

// PitchName returns the two-character label of a pitch class
func PitchName(pc int) string {
	return pitchNames[common.Mod(pc, PitchClasses)]
}

// KeyName returns the human-readable name of a pseudo key. The keys follow
// the major scales; each shares its pitches with the relative minor.
func KeyName(key int) string {
	major := common.Mod(key, PitchClasses)
	minor := common.Mod(key-3, PitchClasses)
	return fmt.Sprintf("%s major / %s minor", keyNames[major], keyNames[minor])
}
