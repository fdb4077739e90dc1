// Package synth turns field descriptors into fake values. Every call takes a
// *Source so output is reproducible for a given seed.
package synth

import (
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

const (
	letters      = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// Source is a seeded random source plus the reference time used for relative
// dates. A Source is not safe for concurrent use; give each goroutine its own.
type Source struct {
	faker *gofakeit.Faker
	now   time.Time
}

// NewSource returns a Source seeded with seed, anchored at the current time.
func NewSource(seed uint64) *Source {
	return NewSourceAt(seed, time.Now())
}

// NewSourceAt returns a Source anchored at now.
func NewSourceAt(seed uint64, now time.Time) *Source {
	return &Source{
		faker: gofakeit.New(seed),
		now:   now,
	}
}

// ChunkSeed derives the seed of one chunk attempt from the job seed.
func ChunkSeed(base uint64, chunk, attempt int) uint64 {
	// splitmix64 finalizer over the combined inputs
	z := base + uint64(chunk+1)*0x9E3779B97F4A7C15 + uint64(attempt)*0xBF58476D1CE4E5B9
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// Intn returns an int in [min, max]. Bounds are swapped if reversed.
func (s *Source) Intn(min, max int) int {
	if min > max {
		min, max = max, min
	}
	if min == max {
		return min
	}
	return s.faker.IntRange(min, max)
}

// Floatn returns a float64 in [min, max].
func (s *Source) Floatn(min, max float64) float64 {
	if min > max {
		min, max = max, min
	}
	if min == max {
		return min
	}
	return s.faker.Float64Range(min, max)
}

// Chance returns true with probability p.
func (s *Source) Chance(p float64) bool {
	return s.faker.Float64Range(0, 1) < p
}

// Pick returns a uniformly chosen element of xs.
func (s *Source) Pick(xs []int64) int64 {
	return xs[s.Intn(0, len(xs)-1)]
}

func (s *Source) digit() byte {
	return byte('0' + s.Intn(0, 9))
}

func (s *Source) letter() byte {
	return letters[s.Intn(0, len(letters)-1)]
}

func (s *Source) alnum() byte {
	return alphanumeric[s.Intn(0, len(alphanumeric)-1)]
}

// String returns a random alphanumeric string of length n.
func (s *Source) String(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = s.alnum()
	}
	return string(b)
}

// Bytes returns n random bytes.
func (s *Source) Bytes(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(s.Intn(0, 255))
	}
	return b
}

// Date returns a calendar date uniformly drawn from [from, to].
func (s *Source) Date(from, to time.Time) time.Time {
	from = truncateDay(from)
	to = truncateDay(to)
	if to.Before(from) {
		from, to = to, from
	}
	days := int(to.Sub(from).Hours() / 24)
	return from.AddDate(0, 0, s.Intn(0, days))
}

// Instant returns a time uniformly drawn from [from, to] at second precision.
func (s *Source) Instant(from, to time.Time) time.Time {
	a, b := from.Unix(), to.Unix()
	if b < a {
		a, b = b, a
	}
	span := b - a
	var off int64
	if span > 0 {
		off = int64(s.faker.Float64Range(0, float64(span)))
	}
	return time.Unix(a+off, 0).UTC()
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
