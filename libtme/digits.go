package libtme

import (
	"math/big"
	"strings"
	"unicode"

	"github.com/fine-structures/tme"
	"github.com/pkg/errors"
)

const (
	MinBase = 2
	MaxBase = 36
)

// IndexBytes returns the minimal unsigned big-endian bytes of idx (no leading zero byte).
// Zero yields an empty slice.
func IndexBytes(idx *big.Int) ([]byte, error) {
	if idx.Sign() < 0 {
		return nil, errors.Wrapf(tme.ErrRange, "negative index %v", idx)
	}
	return idx.Bytes(), nil
}

// IndexFromBytes interprets buf as an unsigned big-endian integer.  An empty buf is zero.
func IndexFromBytes(buf []byte) *big.Int {
	return new(big.Int).SetBytes(buf)
}

// FormatDigits returns idx in the given base using digits 0-9 then A-Z, most significant first.
func FormatDigits(idx *big.Int, base int) (string, error) {
	if base < MinBase || base > MaxBase {
		return "", errors.Wrapf(tme.ErrUnsupported, "base %d", base)
	}
	if idx.Sign() < 0 {
		return "", errors.Wrapf(tme.ErrRange, "negative index %v", idx)
	}
	return strings.ToUpper(idx.Text(base)), nil
}

// ParseDigits reads a base-N digit string.
//
// Digits are case-insensitive and whitespace anywhere in the text is ignored.
// Signs, prefixes and separators are not digits and are rejected.
func ParseDigits(text string, base int) (*big.Int, error) {
	if base < MinBase || base > MaxBase {
		return nil, errors.Wrapf(tme.ErrUnsupported, "base %d", base)
	}

	acc := new(big.Int)
	radix := big.NewInt(int64(base))
	var digit big.Int

	numDigits := 0
	for i, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		val := digitValue(r)
		if val < 0 || val >= base {
			return nil, errors.Wrapf(tme.ErrFormat, "invalid base %d digit %q at offset %d", base, r, i)
		}
		acc.Mul(acc, radix)
		acc.Add(acc, digit.SetInt64(int64(val)))
		numDigits++
	}

	if numDigits == 0 {
		return nil, errors.Wrapf(tme.ErrFormat, "no base %d digits", base)
	}
	return acc, nil
}

func digitValue(r rune) int {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0')
	case r >= 'A' && r <= 'Z':
		return int(r-'A') + 10
	case r >= 'a' && r <= 'z':
		return int(r-'a') + 10
	}
	return -1
}
