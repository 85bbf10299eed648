// Package bits holds the bit-level data model for the sanitization
// pipeline: materialized bit sequences, fixed-size chunks, and the
// chunking rules every stage shares.
package bits

import "fmt"

// Sequence is an ordered sequence of bits, one byte per bit holding 0 or 1.
// Sequences are treated as immutable: stages never modify a sequence in
// place, they produce new ones.
type Sequence []byte

// FromBytes materializes a bit sequence from raw bytes, expanding each
// byte MSB-first. The result has length 8*len(data).
func FromBytes(data []byte) Sequence {
	seq := make(Sequence, 0, len(data)*8)
	for _, b := range data {
		for shift := 7; shift >= 0; shift-- {
			seq = append(seq, (b>>uint(shift))&1)
		}
	}
	return seq
}

// Len returns the number of bits in the sequence.
func (s Sequence) Len() int { return len(s) }

// ASCII renders the sequence as a string of '0' and '1' characters,
// the format the oracle's epsilon input file expects.
func (s Sequence) ASCII() string {
	out := make([]byte, len(s))
	for i, b := range s {
		out[i] = '0' + b
	}
	return string(out)
}

// ParseASCII builds a sequence from a string of '0'/'1' characters.
// Any other character is rejected.
func ParseASCII(text string) (Sequence, error) {
	seq := make(Sequence, 0, len(text))
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '0':
			seq = append(seq, 0)
		case '1':
			seq = append(seq, 1)
		default:
			return nil, &ParseError{Offset: i, Char: text[i]}
		}
	}
	return seq, nil
}

// ParseError reports a non-bit character in ASCII input.
type ParseError struct {
	Offset int
	Char   byte
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("bits: invalid character %q at offset %d", e.Char, e.Offset)
}

// Bytes packs the sequence back into raw bytes, MSB-first, the inverse
// of FromBytes. Trailing bits short of a full byte are dropped, matching
// the chunker's discard rule.
func (s Sequence) Bytes() []byte {
	out := make([]byte, len(s)/8)
	for i := range out {
		var b byte
		for j := 0; j < 8; j++ {
			b = b<<1 | s[i*8+j]
		}
		out[i] = b
	}
	return out
}

// Ones counts the set bits in the sequence.
func (s Sequence) Ones() int {
	n := 0
	for _, b := range s {
		n += int(b)
	}
	return n
}

// Concat joins sequences in order into a new sequence.
func Concat(seqs ...Sequence) Sequence {
	total := 0
	for _, s := range seqs {
		total += len(s)
	}
	out := make(Sequence, 0, total)
	for _, s := range seqs {
		out = append(out, s...)
	}
	return out
}
