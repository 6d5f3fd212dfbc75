package libtme

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/fine-structures/tme"
	"github.com/pkg/errors"
)

// ParseSuffix maps a filename suffix (without the dot) to a FormatSpec:
//
//	bin     raw big-endian bytes
//	b<N>    base-N digits, 2 <= N <= 36
//	jst     readable transition table
func ParseSuffix(ext string) (tme.FormatSpec, error) {
	ext = strings.TrimPrefix(ext, ".")
	switch ext {
	case "bin":
		return tme.SpecBytes, nil
	case "jst":
		return tme.SpecTable, nil
	}

	if len(ext) > 1 && ext[0] == 'b' {
		base, err := strconv.Atoi(ext[1:])
		if err == nil && ext[1] >= '1' && ext[1] <= '9' && base >= MinBase && base <= MaxBase {
			return tme.FormatSpec{
				Format: tme.FormatDigits,
				Base:   base,
			}, nil
		}
	}

	return tme.FormatSpec{}, errors.Wrapf(tme.ErrFormat, "unrecognized format suffix %q", ext)
}

// Suffix is the inverse of ParseSuffix.
func Suffix(spec tme.FormatSpec) (string, error) {
	switch spec.Format {
	case tme.FormatBytes:
		return "bin", nil
	case tme.FormatTable:
		return "jst", nil
	case tme.FormatDigits:
		if spec.Base >= MinBase && spec.Base <= MaxBase {
			return "b" + strconv.Itoa(spec.Base), nil
		}
	}
	return "", errors.Wrapf(tme.ErrUnsupported, "format %d, base %d", spec.Format, spec.Base)
}

// DecodeIndex reads a bijective index from data in a numeric format.
func DecodeIndex(data []byte, spec tme.FormatSpec) (*big.Int, error) {
	switch spec.Format {
	case tme.FormatBytes:
		if len(data) == 0 {
			return nil, errors.Wrap(tme.ErrFormat, "no index bytes")
		}
		return IndexFromBytes(data), nil
	case tme.FormatDigits:
		return ParseDigits(string(data), spec.Base)
	}
	return nil, errors.Wrapf(tme.ErrUnsupported, "format %d has no index", spec.Format)
}

// EncodeIndex writes a bijective index in a numeric format.
//
// In FormatBytes, zero is written as a single zero byte so that the output is never empty.
func EncodeIndex(idx *big.Int, spec tme.FormatSpec) ([]byte, error) {
	switch spec.Format {
	case tme.FormatBytes:
		buf, err := IndexBytes(idx)
		if err == nil && len(buf) == 0 {
			buf = []byte{0}
		}
		return buf, err
	case tme.FormatDigits:
		str, err := FormatDigits(idx, spec.Base)
		return []byte(str), err
	}
	return nil, errors.Wrapf(tme.ErrUnsupported, "format %d has no index", spec.Format)
}

// Decode reads a machine from data in the given format.
//
// The table format is parsed directly; numeric formats are read as a bijective index then decoded.
func Decode(data []byte, spec tme.FormatSpec) (tme.Machine, error) {
	if spec.Format == tme.FormatTable {
		return ParseTable(string(data), TableOpts{})
	}
	idx, err := DecodeIndex(data, spec)
	if err != nil {
		return nil, err
	}
	return DecodeMachine(idx)
}

// Encode writes m in the given format.
func Encode(m tme.Machine, spec tme.FormatSpec) ([]byte, error) {
	if spec.Format == tme.FormatTable {
		if err := m.Validate(); err != nil {
			return nil, err
		}
		return m.AppendTable(nil), nil
	}
	idx, err := EncodeMachine(m)
	if err != nil {
		return nil, err
	}
	return EncodeIndex(idx, spec)
}
