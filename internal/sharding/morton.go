package sharding

import "math/bits"

// mortonDecode expands the z-curve index z into a coordinate for a grid of
// the given shape. Bits are consumed round-robin across dimensions, skipping
// dimensions whose bit budget is exhausted.
func mortonDecode(z uint64, shape []int) []int {
	rank := len(shape)
	bitBudget := make([]int, rank)
	maxBits := 0
	for d, n := range shape {
		b := bits.Len(uint(n - 1))
		bitBudget[d] = b
		if b > maxBits {
			maxBits = b
		}
	}

	out := make([]int, rank)
	inputBit := 0
	for coordBit := 0; coordBit < maxBits; coordBit++ {
		for d := 0; d < rank; d++ {
			if coordBit < bitBudget[d] {
				bit := (z >> inputBit) & 1
				out[d] |= int(bit) << coordBit
				inputBit++
			}
		}
	}
	return out
}

// mortonOrder returns every coordinate of the grid exactly once, in z-curve
// order. The order is deterministic and matches the shard payload layout.
func mortonOrder(shape []int) [][]int {
	total := 1
	for _, n := range shape {
		if n == 0 {
			return nil
		}
		total *= n
	}

	out := make([][]int, 0, total)
	for z := uint64(0); len(out) < total; z++ {
		coord := mortonDecode(z, shape)
		inside := true
		for d, c := range coord {
			if c >= shape[d] {
				inside = false
				break
			}
		}
		if inside {
			out = append(out, coord)
		}
	}
	return out
}
