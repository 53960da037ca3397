package tonal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func TestProfilesShareScaleMembership(t *testing.T) {
	weighted := WeightedKeyProfile()
	binary := BinaryKeyProfile()

	for key := range PitchClasses {
		row := mat.Row(nil, key, weighted.Matrix())
		assert.InDelta(t, 1.0, floats.Sum(row), 1e-9, "key %d", key)

		for pc := range PitchClasses {
			inScale := binary.At(key, pc) == 1
			assert.Equal(t, inScale, weighted.At(key, pc) != 0, "key %d pitch %d", key, pc)
		}
	}
}

func TestProfileMatrixIsACopy(t *testing.T) {
	profile := WeightedKeyProfile()
	before := profile.At(0, 0)

	m := profile.Matrix()
	m.Set(0, 0, 42)

	assert.Equal(t, before, profile.At(0, 0))
	assert.Equal(t, before, WeightedKeyProfile().At(0, 0))
}

func TestEstimateKeyDiatonicMajor(t *testing.T) {
	ke := NewKeyEstimator()

	result := ke.EstimateKey([]int{0, 2, 4, 5, 7, 9, 11})
	assert.Equal(t, 0, result.Key)
	assert.Equal(t, "C major / A minor", result.KeyName)
	assert.InDelta(t, 1.0, result.Scores[0], 1e-9)
	assert.Equal(t, 1.0, result.Histogram[4])

	assert.Equal(t, 7, ke.DetectKey([]int{7, 9, 11, 0, 2, 4, 6, 7, 7}))
}

func TestEstimateKeyWrapsPitches(t *testing.T) {
	ke := NewKeyEstimator()
	assert.Equal(t, ke.DetectKey([]int{0, 2, 4, 5, 7, 9, 11}), ke.DetectKey([]int{12, 14, 16, -7, 19, 21, -1}))
}

func TestEstimateKeyTiesGoToLowestKey(t *testing.T) {
	assert.Equal(t, 0, NewKeyEstimator().DetectKey(nil))
}

func TestCorrectPitches(t *testing.T) {
	ke := NewKeyEstimator()

	in := []int{6, 1, 10, 0, 4}
	got := ke.CorrectPitches(0, in)

	// F# -> G (0.13 beats 0.08), C# -> D (0.21 beats 0.19), A# -> A (0.11 beats 0.07)
	assert.Equal(t, []int{7, 2, 9, 0, 4}, got)
	assert.Equal(t, []int{6, 1, 10, 0, 4}, in)
}

func TestCorrectPitchesBinaryPrefersUpOnTie(t *testing.T) {
	ke := NewKeyEstimatorWithProfile(BinaryKeyProfile())
	assert.Equal(t, []int{7, 2, 11}, ke.CorrectPitches(0, []int{6, 1, 10}))
}

func TestCorrectPitchesIsIdempotent(t *testing.T) {
	for _, profile := range []*KeyProfile{WeightedKeyProfile(), BinaryKeyProfile()} {
		ke := NewKeyEstimatorWithProfile(profile)
		all := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}

		for key := range PitchClasses {
			once := ke.CorrectPitches(key, all)
			assert.Equal(t, once, ke.CorrectPitches(key, once), "profile %s key %d", profile.Kind(), key)
			for _, pc := range once {
				assert.NotZero(t, profile.At(key, pc))
			}
		}
	}
}

func TestPitchAndKeyNames(t *testing.T) {
	assert.Equal(t, "C_", PitchName(0))
	assert.Equal(t, "F#", PitchName(6))
	assert.Equal(t, "B_", PitchName(-1))
	assert.Equal(t, "G major / E minor", KeyName(7))
}

func TestParseKeyProfile(t *testing.T) {
	p, err := ParseKeyProfile("Binary")
	require.NoError(t, err)
	assert.Equal(t, KeyProfileBinary, p.Kind())

	p, err = ParseKeyProfile("")
	require.NoError(t, err)
	assert.Equal(t, KeyProfileWeighted, p.Kind())

	_, err = ParseKeyProfile("krumhansl")
	assert.Error(t, err)
}

func TestProfileIsIsolatedFromTable(t *testing.T) {
	p := WeightedKeyProfile()
	p.table.Set(0, 0, 42)
	assert.Equal(t, 0.19, WeightedKeyProfile().At(0, 0))
}
