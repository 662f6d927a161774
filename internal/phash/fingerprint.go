package phash

import (
	"math/bits"
	"strings"

	apperrors "github.com/wetcoding/cardrecognizer/internal/errors"
)

// ErrLengthMismatch is returned when comparing fingerprints of different lengths.
var ErrLengthMismatch = apperrors.New(apperrors.CodeLengthMismatch, "fingerprint lengths differ")

// Fingerprint is an immutable sequence of bits. The zero value has length 0.
type Fingerprint struct {
	n     int
	words []uint64
}

// NewFingerprint packs bits in order.
func NewFingerprint(bitList []bool) Fingerprint {
	f := Fingerprint{n: len(bitList), words: make([]uint64, (len(bitList)+63)/64)}
	for i, b := range bitList {
		if b {
			f.words[i/64] |= 1 << (i % 64)
		}
	}
	return f
}

// FromUint64 takes the n low bits of v, most significant first.
func FromUint64(v uint64, n int) Fingerprint {
	bitList := make([]bool, n)
	for i := range bitList {
		bitList[i] = v&(1<<(n-1-i)) != 0
	}
	return NewFingerprint(bitList)
}

// ParseFingerprint reads the "0"/"1" form produced by String.
func ParseFingerprint(s string) (Fingerprint, error) {
	bitList := make([]bool, len(s))
	for i, c := range s {
		switch c {
		case '0':
		case '1':
			bitList[i] = true
		default:
			return Fingerprint{}, apperrors.Newf(apperrors.CodeInvalidArgument, "invalid fingerprint digit %q at %d", c, i)
		}
	}
	return NewFingerprint(bitList), nil
}

// Len returns the number of bits.
func (f Fingerprint) Len() int { return f.n }

// Bit reports bit i.
func (f Fingerprint) Bit(i int) bool {
	return f.words[i/64]&(1<<(i%64)) != 0
}

// String renders the bits as '0'/'1' characters.
func (f Fingerprint) String() string {
	var sb strings.Builder
	sb.Grow(f.n)
	for i := 0; i < f.n; i++ {
		if f.Bit(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// MarshalText implements encoding.TextMarshaler.
func (f Fingerprint) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Fingerprint) UnmarshalText(text []byte) error {
	parsed, err := ParseFingerprint(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Equal reports whether both fingerprints hold the same bits.
func (f Fingerprint) Equal(o Fingerprint) bool {
	d, err := f.Distance(o)
	return err == nil && d == 0
}

// Distance returns the Hamming distance.
func (f Fingerprint) Distance(o Fingerprint) (int, error) {
	if f.n != o.n {
		return 0, ErrLengthMismatch
	}
	d := 0
	for i := range f.words {
		d += bits.OnesCount64(f.words[i] ^ o.words[i])
	}
	return d, nil
}

// Similarity returns 1 - distance/length in [0,1].
// ok is false when the lengths differ or both fingerprints are empty.
func Similarity(a, b Fingerprint) (similarity float64, ok bool) {
	d, err := a.Distance(b)
	if err != nil || a.n == 0 {
		return 0, false
	}
	return 1 - float64(d)/float64(a.n), true
}

// Similar reports similarity strictly above threshold.
// Fingerprints of unequal length are never similar.
func Similar(a, b Fingerprint, threshold float64) bool {
	s, ok := Similarity(a, b)
	return ok && s > threshold
}
