// Package dataset builds the arrays algorithms are run on.
package dataset

import (
	"math/rand"
	"time"
)

// Sequence returns 0..n-1.
func Sequence(n int) []int {
	if n <= 0 {
		return []int{}
	}
	data := make([]int, n)
	for i := range data {
		data[i] = i
	}
	return data
}

// Shuffle visits every index once and swaps it with a random index below len-1.
// The last slot is never picked as a swap target, so the result is not uniform.
func Shuffle(data []int, rng *rand.Rand) {
	n := len(data)
	if n < 2 {
		return
	}
	for i := 0; i < n; i++ {
		r := rng.Intn(n - 1)
		data[i], data[r] = data[r], data[i]
	}
}

// NewRand returns a source seeded with seed, or with the clock when seed is zero.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Shuffled returns a shuffled 0..n-1.
func Shuffled(n int, seed int64) []int {
	data := Sequence(n)
	Shuffle(data, NewRand(seed))
	return data
}

func IsSorted(data []int) bool {
	for i := 1; i < len(data); i++ {
		if data[i-1] > data[i] {
			return false
		}
	}
	return true
}

// IsPermutation reports whether data holds each of 0..len-1 exactly once.
func IsPermutation(data []int) bool {
	seen := make([]bool, len(data))
	for _, v := range data {
		if v < 0 || v >= len(data) || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}
