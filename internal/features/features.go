// Package features defines the closed set of housing attributes the price
// model consumes and the vector that carries their values.
package features

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Key names one housing attribute
type Key string

const (
	CRIM    Key = "CRIM"
	ZN      Key = "ZN"
	INDUS   Key = "INDUS"
	CHAS    Key = "CHAS"
	NOX     Key = "NOX"
	RM      Key = "RM"
	AGE     Key = "AGE"
	DIS     Key = "DIS"
	RAD     Key = "RAD"
	TAX     Key = "TAX"
	PTRATIO Key = "PTRATIO"
	B       Key = "B"
	LSTAT   Key = "LSTAT"
)

// NumKeys is the size of the attribute set
const NumKeys = 13

// Keys lists every attribute in wire order
var Keys = [NumKeys]Key{CRIM, ZN, INDUS, CHAS, NOX, RM, AGE, DIS, RAD, TAX, PTRATIO, B, LSTAT}

// ErrUnknownKey is returned for a key outside the attribute set
var ErrUnknownKey = errors.New("unknown feature key")

var keyIndex = func() map[Key]int {
	m := make(map[Key]int, NumKeys)
	for i, k := range Keys {
		m[k] = i
	}
	return m
}()

// ParseKey validates s against the attribute set
func ParseKey(s string) (Key, error) {
	k := Key(s)
	if _, ok := keyIndex[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKey, s)
	}
	return k, nil
}

// Index returns the position of k in Keys, or -1 when k is unknown
func (k Key) Index() int {
	if i, ok := keyIndex[k]; ok {
		return i
	}
	return -1
}

// InputVector holds one value per attribute. Every key is always present;
// the zero value is the all-zero vector a fresh form starts with.
type InputVector [NumKeys]float64

// Get returns the value stored for k. Unknown keys read as NaN.
func (v InputVector) Get(k Key) float64 {
	i := k.Index()
	if i < 0 {
		return math.NaN()
	}
	return v[i]
}

// With returns a copy of v with k set to value
func (v InputVector) With(k Key, value float64) (InputVector, error) {
	i := k.Index()
	if i < 0 {
		return v, fmt.Errorf("%w: %q", ErrUnknownKey, string(k))
	}
	v[i] = value
	return v, nil
}

// Map returns the vector as a key/value map
func (v InputVector) Map() map[Key]float64 {
	m := make(map[Key]float64, NumKeys)
	for i, k := range Keys {
		m[k] = v[i]
	}
	return m
}

// CheckFinite reports the first attribute holding NaN or an infinity
func (v InputVector) CheckFinite() error {
	for i, k := range Keys {
		if math.IsNaN(v[i]) || math.IsInf(v[i], 0) {
			return fmt.Errorf("feature %s is not a finite number (%v)", k, v[i])
		}
	}
	return nil
}

// MarshalJSON encodes the vector as an object with all 13 keys in wire
// order. Non-finite values have no JSON form and fail the encoding.
func (v InputVector) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range Keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		num, err := json.Marshal(v[i])
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", k, err)
		}
		buf.WriteString(strconv.Quote(string(k)))
		buf.WriteByte(':')
		buf.Write(num)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Coerce converts free text from a numeric field into a number the way a
// browser number input does. Blank or unparsable text becomes NaN; the
// value is never clamped or corrected. The only spelled-out value accepted
// is an optionally signed "Infinity".
func Coerce(text string) float64 {
	s := strings.TrimSpace(text)
	if s == "" {
		return math.NaN()
	}
	if strings.TrimLeft(s, "+-") != "Infinity" && strings.IndexFunc(s, isSpelledOut) >= 0 {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return f
		}
		return math.NaN()
	}
	return f
}

// isSpelledOut matches letters other than an exponent marker
func isSpelledOut(r rune) bool {
	return unicode.IsLetter(r) && r != 'e' && r != 'E'
}
