package fec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrBadScheme is returned for code strings and kinds outside the supported set.
var ErrBadScheme = errors.New("fec: malformed code scheme")

// SchemeKind is the closed set of channel codes a link can use.
type SchemeKind uint8

// Supported code kinds.
const (
	SchemeNone SchemeKind = iota
	SchemeRepetition
	SchemeHamming74
	SchemePolar
)

// Scheme is a resolved code configuration. N and K are only meaningful for SchemePolar;
// a polar scheme with N == 0 is sized per message (see Coder).
type Scheme struct {
	Kind SchemeKind
	N, K int
}

// Auto reports whether the scheme is a per-message sized polar code.
func (s Scheme) Auto() bool { return s.Kind == SchemePolar && s.N == 0 }

func (s Scheme) String() string {
	switch s.Kind {
	case SchemeNone:
		return "None"
	case SchemeRepetition:
		return "Repetition(3,1)"
	case SchemeHamming74:
		return "Hamming(7,4)"
	case SchemePolar:
		if s.Auto() {
			return "Polar"
		}
		return fmt.Sprintf("Polar(%d,%d)", s.N, s.K)
	}
	return fmt.Sprintf("Scheme(%d)", uint8(s.Kind))
}

// Rate is the nominal code rate; auto-sized polar reports 1/2.
func (s Scheme) Rate() float64 {
	switch s.Kind {
	case SchemeRepetition:
		return 1.0 / 3
	case SchemeHamming74:
		return 4.0 / 7
	case SchemePolar:
		if s.Auto() {
			return 0.5
		}
		return float64(s.K) / float64(s.N)
	}
	return 1
}

// ParseScheme parses "None", "Repetition(3,1)", "Hamming(7,4)", "Polar" and "Polar(N,K)".
// Polar parameters must describe a constructible code (N a power of two, 0 < K <= N).
func ParseScheme(str string) (Scheme, error) {
	s := strings.Join(strings.Fields(str), "")
	switch s {
	case "", "None":
		return Scheme{Kind: SchemeNone}, nil
	case "Repetition(3,1)":
		return Scheme{Kind: SchemeRepetition}, nil
	case "Hamming(7,4)":
		return Scheme{Kind: SchemeHamming74}, nil
	case "Polar":
		return Scheme{Kind: SchemePolar}, nil
	}
	if !strings.HasPrefix(s, "Polar(") || !strings.HasSuffix(s, ")") {
		return Scheme{}, fmt.Errorf("%w: %q", ErrBadScheme, str)
	}
	params := strings.Split(strings.TrimSuffix(strings.TrimPrefix(s, "Polar("), ")"), ",")
	if len(params) != 2 {
		return Scheme{}, fmt.Errorf("%w: %q wants Polar(N,K)", ErrBadScheme, str)
	}
	N, err1 := strconv.Atoi(params[0])
	K, err2 := strconv.Atoi(params[1])
	if err1 != nil || err2 != nil {
		return Scheme{}, fmt.Errorf("%w: %q has non-integer parameters", ErrBadScheme, str)
	}
	if _, err := log2Exact(N); err != nil {
		return Scheme{}, fmt.Errorf("%w: %q: %w", ErrBadScheme, str, err)
	}
	if K <= 0 || K > N {
		return Scheme{}, fmt.Errorf("%w: %q: %w", ErrBadScheme, str, ErrInvalidK)
	}
	return Scheme{Kind: SchemePolar, N: N, K: K}, nil
}

// ParseSchemeLenient parses like ParseScheme but falls back to the uncoded scheme when the
// string is malformed, reporting ok=false. Callers decide whether to log or reject.
func ParseSchemeLenient(str string) (s Scheme, ok bool) {
	s, err := ParseScheme(str)
	if err != nil {
		return Scheme{Kind: SchemeNone}, false
	}
	return s, true
}
