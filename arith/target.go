// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package arith implements 256-bit unsigned integer arithmetic for
// proof-of-work targets, including the compact ("nBits") encoding used on
// the wire. The compact round-trip is lossy by design (only the top 24
// mantissa bits survive) and every operation here must be bit-exact:
// retarget math run through this package is consensus.
package arith

import "math/big"

// Target is a 256-bit unsigned integer. It wraps math/big, the same
// representation chaincfg.Params uses for PowLimit.
type Target struct {
	v big.Int
}

// New returns a zero-valued Target.
func New() *Target {
	return &Target{}
}

// FromBig returns a Target holding a copy of v.
func FromBig(v *big.Int) *Target {
	t := &Target{}
	t.v.Set(v)
	return t
}

// Big returns a copy of t's value as a *big.Int.
func (t *Target) Big() *big.Int {
	return new(big.Int).Set(&t.v)
}

// Set assigns o's value to t and returns t.
func (t *Target) Set(o *Target) *Target {
	t.v.Set(&o.v)
	return t
}

// SetUint64 assigns v to t and returns t.
func (t *Target) SetUint64(v uint64) *Target {
	t.v.SetUint64(v)
	return t
}

// SetBytesLE interprets b as a little-endian unsigned integer (as a block
// hash is serialized) and assigns it to t. b need not be exactly 32 bytes.
func (t *Target) SetBytesLE(b []byte) *Target {
	be := make([]byte, len(b))
	for i, bb := range b {
		be[len(b)-1-i] = bb
	}
	t.v.SetBytes(be)
	return t
}

// Cmp returns -1, 0, or +1 as t is less than, equal to, or greater than o.
func (t *Target) Cmp(o *Target) int {
	return t.v.Cmp(&o.v)
}

// Sign returns -1, 0, or +1 depending on the sign of t (always 0 or +1 for a
// value produced by SetCompact/SetBytesLE, which never construct negatives).
func (t *Target) Sign() int {
	return t.v.Sign()
}

// IsZero reports whether t holds the value zero.
func (t *Target) IsZero() bool {
	return t.v.Sign() == 0
}

// Lsh shifts t left by n bits in place and returns t.
func (t *Target) Lsh(n uint) *Target {
	t.v.Lsh(&t.v, n)
	return t
}

// Rsh shifts t right by n bits in place and returns t.
func (t *Target) Rsh(n uint) *Target {
	t.v.Rsh(&t.v, n)
	return t
}

// MulInt64 multiplies t in place by the (possibly negative) scalar a and
// returns t. This is a widening multiply: the product is never truncated to
// 256 bits by this call (callers clamp separately where required).
func (t *Target) MulInt64(a int64) *Target {
	t.v.Mul(&t.v, big.NewInt(a))
	return t
}

// DivInt64 divides t in place by the nonzero scalar a (truncating toward
// zero) and returns t.
func (t *Target) DivInt64(a int64) *Target {
	t.v.Div(&t.v, big.NewInt(a))
	return t
}

// Clamp caps t in place to at most max, returning t.
func (t *Target) Clamp(max *Target) *Target {
	if t.v.Cmp(&max.v) > 0 {
		t.v.Set(&max.v)
	}
	return t
}

// SetCompact decodes the compact ("nBits") encoding into t and reports
// whether the sign bit was set (neg) and whether the exponent overflowed
// the representable range (overflow). On neg or overflow, t is set to zero,
// matching arith_uint256::SetCompact: the three flag conditions in the
// governing spec (negative, zero, overflow) collapse to these two return
// values plus the implicit "t.IsZero()" check on the result.
func (t *Target) SetCompact(compact uint32) (neg bool, overflow bool) {
	size := compact >> 24
	word := compact & 0x007fffff

	if size <= 3 {
		word >>= 8 * (3 - size)
		t.v.SetUint64(uint64(word))
	} else {
		t.v.SetUint64(uint64(word))
		t.v.Lsh(&t.v, uint(8*(size-3)))
	}

	neg = word != 0 && compact&0x00800000 != 0
	overflow = word != 0 && (size > 34 ||
		(word > 0xff && size > 33) ||
		(word > 0xffff && size > 32))

	if neg || overflow {
		t.v.SetUint64(0)
	}

	return neg, overflow
}

// GetCompact encodes t into the compact ("nBits") form, setting the sign bit
// when neg is true and the mantissa is nonzero.
func (t *Target) GetCompact(neg bool) uint32 {
	size := uint((t.v.BitLen() + 7) / 8)

	var compact uint32
	switch {
	case size == 0:
		compact = 0
	case size <= 3:
		compact = uint32(t.v.Uint64()) << (8 * (3 - size))
	default:
		shifted := new(big.Int).Rsh(&t.v, 8*(size-3))
		compact = uint32(shifted.Uint64())
	}

	// If the mantissa's high bit would collide with the sign bit,
	// normalize by shifting right 8 and bumping the exponent.
	if compact&0x00800000 != 0 {
		compact >>= 8
		size++
	}

	compact |= uint32(size) << 24
	if neg && compact&0x007fffff != 0 {
		compact |= 0x00800000
	}
	return compact
}
