package spectral

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// DCT4 computes an unnormalised type-IV discrete cosine transform, the core of
// the MDCT:
//
//	X[k] = sum_n x[n] * cos(pi/N * (n + 1/2) * (k + 1/2))
//
// It runs as one complex FFT of length N/2 with pre- and post-twiddles, so N
// must be even. A DCT4 is safe for concurrent use.
type DCT4 struct {
	size int
	pre  []complex128
	post []complex128
}

// NewDCT4 prepares the twiddle factors for length-size transforms.
func NewDCT4(size int) (*DCT4, error) {
	if size <= 0 || size%2 != 0 {
		return nil, fmt.Errorf("dct4 size must be a positive even number, got %d", size)
	}

	half := size / 2
	d := &DCT4{
		size: size,
		pre:  make([]complex128, half),
		post: make([]complex128, half),
	}
	n := float64(size)
	for i := range half {
		d.pre[i] = cmplx.Exp(complex(0, -math.Pi*(float64(i)+0.25)/n))
		d.post[i] = cmplx.Exp(complex(0, -math.Pi*float64(i)/n))
	}
	return d, nil
}

// Size returns the transform length.
func (d *DCT4) Size() int {
	return d.size
}

// Compute returns the DCT-IV of x. len(x) must equal Size().
func (d *DCT4) Compute(x []float64) ([]float64, error) {
	if len(x) != d.size {
		return nil, fmt.Errorf("signal length (%d) doesn't match dct4 size (%d)", len(x), d.size)
	}

	half := d.size / 2
	folded := make([]complex128, half)
	for i := range half {
		folded[i] = complex(x[2*i], x[d.size-1-2*i]) * d.pre[i]
	}

	spectrum := fft.FFT(folded)

	out := make([]float64, d.size)
	for k := range half {
		u := spectrum[k] * d.post[k]
		out[2*k] = real(u)
		out[d.size-1-2*k] = -imag(u)
	}
	return out, nil
}

// Magnitude returns |DCT-IV(x)|.
func (d *DCT4) Magnitude(x []float64) ([]float64, error) {
	out, err := d.Compute(x)
	if err != nil {
		return nil, err
	}
	for i, v := range out {
		out[i] = math.Abs(v)
	}
	return out, nil
}
