// A small set of accelerator device indices.
//
// Representation:
// - the set is a bit vector, 0x0000_0000 is "empty"
// - bits 0..30 represent devices; if bit i is set then device i is in the set
//
// Allocations on a single node never have more than a handful of devices, so the fixed
// width is not a practical limit.

package gpuset

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

type GpuSet uint32

const empty = GpuSet(0)

func EmptyGpuSet() GpuSet {
	return empty
}

// The set of the first n device indices, 0 through n-1.

func FromCount(n int) (GpuSet, error) {
	if n < 0 || n > 31 {
		return empty, fmt.Errorf("Bad device count %d", n)
	}
	return GpuSet(uint32(1)<<uint(n) - 1), nil
}

// Parse a comma-separated list of device indices; "none" and "" are the empty set.

func NewGpuSet(s string) (GpuSet, error) {
	g := empty
	if s == "none" || s == "" {
		return g, nil
	}
	for _, f := range strings.Split(s, ",") {
		n, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return empty, fmt.Errorf("While parsing device list: %w", err)
		}
		if n > 30 {
			return empty, fmt.Errorf("While parsing device list: device #%d", n)
		}
		g |= 1 << n
	}
	return g, nil
}

func (g GpuSet) IsEmpty() bool {
	return g == empty
}

func (g GpuSet) Size() int {
	return bits.OnesCount32(uint32(g))
}

func (g GpuSet) IsSet(n int) bool {
	return n >= 0 && n <= 30 && g&(1<<n) != 0
}

func (g GpuSet) Adjoin(n int) GpuSet {
	if n < 0 || n > 30 {
		return g
	}
	return g | 1<<n
}

func (g GpuSet) AsSlice() []int {
	xs := make([]int, 0, g.Size())
	for k := 0; k < 31; k++ {
		if g&(1<<k) != 0 {
			xs = append(xs, k)
		}
	}
	return xs
}

func (g GpuSet) String() string {
	if g == empty {
		return "none"
	}
	s := ""
	for k := 0; k < 31; k++ {
		if g&(1<<k) != 0 {
			if s != "" {
				s += ","
			}
			s += strconv.Itoa(k)
		}
	}
	return s
}
