package quorum

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/iov-one/quorum/errors"
	"golang.org/x/crypto/sha3"
)

// Modulus is the order of the prime field all ledger values live in,
// 2^64 - 2^32 + 1.
const Modulus uint64 = 0xFFFFFFFF00000001

// Felt is an element of the ledger field. A Felt is always reduced.
type Felt uint64

// NewFelt reduces given value into the field.
func NewFelt(v uint64) Felt {
	if v >= Modulus {
		v -= Modulus
	}
	return Felt(v)
}

// Uint64 returns the canonical integer representation.
func (f Felt) Uint64() uint64 {
	return uint64(f)
}

// WordSize is the number of felts in a Word.
const WordSize = 4

// Word is the native ledger value: four field elements. Storage slots,
// commitments and advice keys are all words.
type Word [WordSize]Felt

// EmptyWord is the zero value word.
var EmptyWord Word

// NewWord builds a word from four integers, reducing each.
func NewWord(a, b, c, d uint64) Word {
	return Word{NewFelt(a), NewFelt(b), NewFelt(c), NewFelt(d)}
}

// IsEmpty returns true if all elements are zero.
func (w Word) IsEmpty() bool {
	return w == EmptyWord
}

// Felts returns the word elements as a slice.
func (w Word) Felts() []Felt {
	return []Felt{w[0], w[1], w[2], w[3]}
}

// Bytes returns the 32 byte little endian encoding of the word.
func (w Word) Bytes() []byte {
	b := make([]byte, 8*WordSize)
	for i, f := range w {
		binary.LittleEndian.PutUint64(b[i*8:], uint64(f))
	}
	return b
}

// WordFromBytes decodes a word encoded with Word.Bytes. Non canonical
// elements are rejected.
func WordFromBytes(b []byte) (Word, error) {
	var w Word
	if len(b) != 8*WordSize {
		return w, errors.Wrapf(errors.ErrInput, "word must be %d bytes, got %d", 8*WordSize, len(b))
	}
	for i := range w {
		v := binary.LittleEndian.Uint64(b[i*8:])
		if v >= Modulus {
			return w, errors.Wrapf(errors.ErrInput, "element %d is not canonical", i)
		}
		w[i] = Felt(v)
	}
	return w, nil
}

// Hex returns 0x followed by each element as 16 hex digits.
func (w Word) Hex() string {
	var sb strings.Builder
	sb.WriteString("0x")
	for _, f := range w {
		fmt.Fprintf(&sb, "%016x", uint64(f))
	}
	return sb.String()
}

func (w Word) String() string {
	return w.Hex()
}

// ParseWordHex is the reverse of Word.Hex. The 0x prefix is optional.
func ParseWordHex(s string) (Word, error) {
	var w Word
	s = strings.TrimPrefix(s, "0x")
	if len(s) != 16*WordSize {
		return w, errors.Wrapf(errors.ErrInput, "word hex must be %d characters", 16*WordSize)
	}
	if _, err := hex.DecodeString(s); err != nil {
		return w, errors.Wrap(errors.ErrInput, "word is not hex encoded")
	}
	for i := range w {
		v, err := strconv.ParseUint(s[i*16:(i+1)*16], 16, 64)
		if err != nil {
			return w, errors.Wrapf(errors.ErrInput, "element %d: %s", i, err)
		}
		if v >= Modulus {
			return w, errors.Wrapf(errors.ErrInput, "element %d is not canonical", i)
		}
		w[i] = Felt(v)
	}
	return w, nil
}

func (w Word) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.Hex())
}

func (w *Word) UnmarshalJSON(raw []byte) error {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return errors.Wrap(errors.ErrInput, "word must be a hex string")
	}
	v, err := ParseWordHex(s)
	if err != nil {
		return err
	}
	*w = v
	return nil
}

// Hash digests arbitrary bytes into a word. The sha3-256 digest is split
// into four little endian integers and each is reduced into the field.
func Hash(data []byte) Word {
	sum := sha3.Sum256(data)
	var w Word
	for i := range w {
		w[i] = NewFelt(binary.LittleEndian.Uint64(sum[i*8:]))
	}
	return w
}

// Merge hashes two words together. The order of arguments matters.
func Merge(a, b Word) Word {
	buf := make([]byte, 0, 16*WordSize)
	buf = append(buf, a.Bytes()...)
	buf = append(buf, b.Bytes()...)
	return Hash(buf)
}

// HashElements hashes a sequence of felts.
func HashElements(felts []Felt) Word {
	buf := make([]byte, 8*len(felts))
	for i, f := range felts {
		binary.LittleEndian.PutUint64(buf[i*8:], uint64(f))
	}
	return Hash(buf)
}
