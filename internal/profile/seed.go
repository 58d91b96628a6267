package profile

import (
	"encoding/json"
	"hash/fnv"
	"math"
	"strconv"
	"strings"
)

// Seed is an optional random seed. It is either an integer or an arbitrary
// string; strings are hashed so that equal text always yields the same
// sequence.
type Seed struct {
	set    bool
	isText bool
	n      int64
	text   string
}

// NoSeed is the unset seed. Generators fall back to entropy seeding.
var NoSeed = Seed{}

// IntSeed returns an integer seed.
func IntSeed(n int64) Seed {
	return Seed{set: true, n: n}
}

// StringSeed returns a text seed. Empty text yields NoSeed.
func StringSeed(s string) Seed {
	if s == "" {
		return NoSeed
	}
	return Seed{set: true, isText: true, text: s}
}

// ParseSeed interprets command line or form input. Empty input and the
// literal "None" are treated as absent; integer text becomes an integer seed
// and anything else a text seed.
func ParseSeed(s string) Seed {
	s = strings.TrimSpace(s)
	if s == "" || s == "None" {
		return NoSeed
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return IntSeed(n)
	}
	return StringSeed(s)
}

// SeedFrom converts a decoded parameter value into a Seed.
func SeedFrom(v any) Seed {
	switch x := v.(type) {
	case nil:
		return NoSeed
	case Seed:
		return x
	case string:
		return ParseSeed(x)
	case json.Number:
		return ParseSeed(x.String())
	case int:
		return IntSeed(int64(x))
	case int64:
		return IntSeed(x)
	case int32:
		return IntSeed(int64(x))
	case uint64:
		return IntSeed(int64(x))
	case uint:
		return IntSeed(int64(x))
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			return IntSeed(int64(x))
		}
		return StringSeed(strconv.FormatFloat(x, 'g', -1, 64))
	}
	return NoSeed
}

// IsSet reports whether a seed was supplied.
func (s Seed) IsSet() bool {
	return s.set
}

// Int64 returns the value used to seed the random source.
func (s Seed) Int64() int64 {
	if !s.isText {
		return s.n
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(s.text))
	return int64(h.Sum64())
}

// Value returns the seed in its persisted form: an int64, a string, or nil.
func (s Seed) Value() any {
	switch {
	case !s.set:
		return nil
	case s.isText:
		return s.text
	}
	return s.n
}

// String implements fmt.Stringer.
func (s Seed) String() string {
	switch {
	case !s.set:
		return "none"
	case s.isText:
		return s.text
	}
	return strconv.FormatInt(s.n, 10)
}
