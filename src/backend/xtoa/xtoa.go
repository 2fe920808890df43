// xtoa.go implements functions for converting integers into decimal and hex
// string representations without reaching for strconv, matching the
// teacher's own choice to hand-roll these conversions. No other package of
// sxc currently imports it: --print-ir formats its operands with fmt.

package xtoa

// ItoA converts a signed integer to its decimal string representation.
func ItoA(i int64) string {
	res := make([]byte, 32) // 64-bit signed int: at most 20 digits plus sign.
	var sign bool

	if i < 0 {
		sign = true
		i = -i
	}

	i1 := len(res) - 1
	if i == 0 {
		return "0"
	}
	for ; i1 >= 0 && i != 0; i1-- {
		res[i1] = byte((i % 10) + '0')
		i /= 10
	}

	if sign {
		res[i1] = '-'
		i1--
	}

	return string(res[i1+1:])
}

// hexDigits are the lowercase hex digit characters, indexed by nibble value.
var hexDigits = [...]byte{'0', '1', '2', '3', '4', '5', '6', '7', '8', '9', 'a', 'b', 'c', 'd', 'e', 'f'}

// HexU64 converts an unsigned 64-bit value to a "0x"-prefixed hex string
// with no leading zero padding, used for dumping immediates and patched
// byte offsets.
func HexU64(v uint64) string {
	if v == 0 {
		return "0x0"
	}
	res := make([]byte, 0, 18)
	var digits []byte
	for v != 0 {
		digits = append(digits, hexDigits[v&0xF])
		v >>= 4
	}
	res = append(res, '0', 'x')
	for i1 := len(digits) - 1; i1 >= 0; i1-- {
		res = append(res, digits[i1])
	}
	return string(res)
}
