// Package codeword generates candidate join codes from word fragments.
//
// A code is one prefix fragment, one suffix fragment, and a two-digit
// disambiguator, e.g. "SOLFOX42". The generator is pure: it only combines
// the configured fragment lists with the injected random source. Claim
// arbitration happens in the vault, not here.
package codeword

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
)

// disambiguatorSpace is the number of numeric suffixes per fragment pair.
const disambiguatorSpace = 100

// ErrSpaceExhausted indicates the generator cannot produce any candidate
// because its fragment lists are empty.
var ErrSpaceExhausted = errors.New("codeword: candidate space exhausted")

// Generator produces candidate join codes.
type Generator struct {
	prefixes []string
	suffixes []string
	intn     func(n int) int
}

// Option configures the Generator.
type Option func(*Generator) error

// WithFragments replaces the built-in prefix/suffix fragment lists.
func WithFragments(prefixes, suffixes []string) Option {
	return func(g *Generator) error {
		for _, lists := range [][]string{prefixes, suffixes} {
			for _, f := range lists {
				if strings.TrimSpace(f) == "" {
					return errors.New("codeword: blank fragment")
				}
			}
		}
		g.prefixes = prefixes
		g.suffixes = suffixes
		return nil
	}
}

// WithRand replaces the random source. intn must return a value in [0, n).
func WithRand(intn func(n int) int) Option {
	return func(g *Generator) error {
		if intn == nil {
			return errors.New("codeword: nil random source")
		}
		g.intn = intn
		return nil
	}
}

// NewGenerator constructs a Generator with the built-in fragment lists.
func NewGenerator(opts ...Option) (*Generator, error) {
	g := &Generator{
		prefixes: prefixFragments,
		suffixes: suffixFragments,
		intn:     rand.IntN,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Candidate returns one random candidate code.
func (g *Generator) Candidate() (string, error) {
	if g == nil || len(g.prefixes) == 0 || len(g.suffixes) == 0 {
		return "", ErrSpaceExhausted
	}
	prefix := g.prefixes[g.intn(len(g.prefixes))]
	suffix := g.suffixes[g.intn(len(g.suffixes))]
	n := g.intn(disambiguatorSpace)
	return fmt.Sprintf("%s%s%02d", strings.ToUpper(prefix), strings.ToUpper(suffix), n), nil
}

// Space reports the total number of distinct candidates.
func (g *Generator) Space() int {
	if g == nil {
		return 0
	}
	return len(g.prefixes) * len(g.suffixes) * disambiguatorSpace
}

// Normalize canonicalizes user-typed codes for lookup.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
