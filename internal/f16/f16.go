// Package f16 implements IEEE-754 binary16 (float16) encoding/decoding.
//
// Float16 is only a storage format for pretrained tables; all arithmetic
// happens in float32.
package f16

import (
	"encoding/binary"
	"math"
)

// Bits is the raw IEEE-754 binary16 bit-pattern.
type Bits uint16

// ToFloat32 converts a binary16 bit-pattern to float32. The conversion is exact.
func ToFloat32(h Bits) float32 {
	sign := uint32(h>>15) << 31
	exp := uint32(h>>10) & 0x1F
	mant := uint32(h) & 0x03FF

	switch {
	case exp == 0x1F:
		return math.Float32frombits(sign | 0x7F800000 | mant<<13)
	case exp == 0 && mant == 0:
		return math.Float32frombits(sign)
	case exp == 0:
		// Subnormal: mant * 2^-24 is exactly representable in float32.
		v := float32(mant) * (1.0 / (1 << 24))
		if sign != 0 {
			v = -v
		}
		return v
	default:
		return math.Float32frombits(sign | (exp+112)<<23 | mant<<13)
	}
}

// FromFloat32 converts a float32 into binary16, rounding to nearest even.
func FromFloat32(f float32) Bits {
	b := math.Float32bits(f)
	sign := Bits(b>>16) & 0x8000
	exp := int32(b>>23) & 0xFF
	mant := b & 0x007FFFFF

	if exp == 0xFF {
		if mant == 0 {
			return sign | 0x7C00
		}
		return sign | 0x7E00
	}

	e := exp - 127 + 15
	if e >= 0x1F {
		return sign | 0x7C00
	}

	if e <= 0 {
		if e < -10 {
			return sign
		}
		mant |= 0x00800000
		shift := uint32(14 - e)
		m := mant >> shift
		rem := mant & (1<<shift - 1)
		half := uint32(1) << (shift - 1)
		if rem > half || (rem == half && m&1 == 1) {
			m++
		}
		// A carry out of the mantissa lands on the smallest normal, which is
		// the correct encoding.
		return sign | Bits(m)
	}

	h := uint32(e)<<10 | mant>>13
	rem := mant & 0x1FFF
	if rem > 0x1000 || (rem == 0x1000 && h&1 == 1) {
		// Carry may propagate into the exponent and up to infinity.
		h++
	}
	return sign | Bits(h)
}

// DecodeLE decodes little-endian binary16 values from src into dst.
// len(src) must be 2*len(dst).
func DecodeLE(dst []float32, src []byte) {
	for i := range dst {
		dst[i] = ToFloat32(Bits(binary.LittleEndian.Uint16(src[2*i:])))
	}
}

// EncodeLE encodes src as little-endian binary16 values into dst.
// len(dst) must be 2*len(src).
func EncodeLE(dst []byte, src []float32) {
	for i, v := range src {
		binary.LittleEndian.PutUint16(dst[2*i:], uint16(FromFloat32(v)))
	}
}
