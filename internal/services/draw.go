package services

import "math/rand"

// Picker returns an index in [0, n).
type Picker func(n int) int

// RandomDraw selects one element of pool uniformly at random.
func RandomDraw(pool []string, pick Picker) (string, error) {
	if len(pool) == 0 {
		return "", ErrEmptyPool
	}
	if pick == nil {
		pick = rand.Intn
	}
	return pool[pick(len(pool))], nil
}
