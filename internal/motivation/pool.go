package motivation

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed pool.yaml
var defaultPoolYAML []byte

var defaultPool = mustLoadPool(defaultPoolYAML)

// Pool is the fixed fallback content. It is never mutated after construction
// and is safe to share between goroutines.
type Pool struct {
	verses []Verse
	quotes []Quote
	stride int
}

type poolFile struct {
	Verses []Verse `yaml:"verses"`
	Quotes []Quote `yaml:"quotes"`
}

// DefaultPool returns the embedded verse and quote pool.
func DefaultPool() *Pool {
	return defaultPool
}

// NewPool validates and copies the given records.
func NewPool(verses []Verse, quotes []Quote) (*Pool, error) {
	if len(verses) == 0 || len(quotes) == 0 {
		return nil, errors.New("pool needs at least one verse and one quote")
	}
	for i, v := range verses {
		if !(Pair{Verse: v, Quote: Quote{Text: "-", Author: "-"}}).Valid() {
			return nil, fmt.Errorf("verse %d is incomplete", i)
		}
	}
	for i, q := range quotes {
		if !(Pair{Verse: Verse{Text: "-", Reference: "-"}, Quote: q}).Valid() {
			return nil, fmt.Errorf("quote %d is incomplete", i)
		}
	}

	return &Pool{
		verses: append([]Verse(nil), verses...),
		quotes: append([]Quote(nil), quotes...),
		stride: coprimeStride(len(quotes)),
	}, nil
}

// LoadPool parses a YAML document with top-level verses and quotes lists.
func LoadPool(data []byte) (*Pool, error) {
	var f poolFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse pool: %w", err)
	}
	return NewPool(f.Verses, f.Quotes)
}

func mustLoadPool(data []byte) *Pool {
	p, err := LoadPool(data)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Pool) Verses() []Verse { return append([]Verse(nil), p.verses...) }
func (p *Pool) Quotes() []Quote { return append([]Quote(nil), p.quotes...) }

// coprimeStride picks the smallest step >= 7 sharing no factor with n, so
// stepping through the quotes by it visits each once per cycle.
func coprimeStride(n int) int {
	if n <= 1 {
		return 1
	}
	for s := 7; ; s++ {
		if gcd(s, n) == 1 {
			return s
		}
	}
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
