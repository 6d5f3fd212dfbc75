package libtme

import (
	"math/big"

	"github.com/fine-structures/tme"
)

// Digit order
//
// A machine folds into its local index by visiting states 0 through n-1 and, within a state, the
// blank case before the mark case.  Each instruction contributes three mixed-radix digits, most
// significant first: write symbol (radix 2), direction (radix 2), next state code (radix n+1).
// Decoding peels digits least significant first, so it fills instructions in the reverse order:
// state n-1 mark down to state 0 blank.

// EncodeMachine returns the bijective index of m.
func EncodeMachine(m tme.Machine) (*big.Int, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	n := len(m)
	radix := big.NewInt(int64(n) + 1)

	acc := new(big.Int)
	var digit big.Int
	for si := 0; si < n; si++ {
		for read := tme.Blank; read <= tme.Mark; read++ {
			inst := m[si][read]
			acc.Lsh(acc, 1)
			acc.Or(acc, digit.SetInt64(int64(inst.Write)))
			acc.Lsh(acc, 1)
			acc.Or(acc, digit.SetInt64(int64(inst.Move)))
			acc.Mul(acc, radix)
			acc.Add(acc, digit.SetInt64(int64(inst.Next.Code())))
		}
	}

	return acc.Add(acc, BaseOffset(n)), nil
}

// DecodeMachine returns the machine having the given bijective index.
func DecodeMachine(idx *big.Int) (tme.Machine, error) {
	n, local, err := Locate(idx)
	if err != nil {
		return nil, err
	}

	m := make(tme.Machine, n)
	radix := big.NewInt(int64(n) + 1)

	var digit big.Int
	for si := n - 1; si >= 0; si-- {
		for read := tme.Mark; ; read-- {
			inst := &m[si][read]
			local.QuoRem(local, radix, &digit)
			inst.Next = tme.StateRefFromCode(int(digit.Int64()))
			inst.Move = tme.Direction(local.Bit(0))
			local.Rsh(local, 1)
			inst.Write = tme.Symbol(local.Bit(0))
			local.Rsh(local, 1)
			if read == tme.Blank {
				break
			}
		}
	}

	if local.Sign() != 0 {
		panic("local index exceeds the machine count for its size")
	}
	return m, nil
}
