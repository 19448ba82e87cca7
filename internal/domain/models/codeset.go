package models

import (
	"fmt"
	"math/bits"
	"strings"
)

// CodeSet is an immutable set of numeric codes (1-9, 11, 22) stored as a bitmask.
type CodeSet uint32

// IsNumericCode reports whether n can be produced by digit reduction.
func IsNumericCode(n int) bool {
	return (n >= 1 && n <= 9) || n == 11 || n == 22
}

// NewCodeSet builds a set, rejecting values that are not numeric codes.
func NewCodeSet(codes ...int) (CodeSet, error) {
	var s CodeSet
	for _, c := range codes {
		if !IsNumericCode(c) {
			return 0, fmt.Errorf("code %d is not a reduced value", c)
		}
		s |= 1 << uint(c)
	}
	return s, nil
}

// MustCodeSet is NewCodeSet for literals known to be valid.
func MustCodeSet(codes ...int) CodeSet {
	s, err := NewCodeSet(codes...)
	if err != nil {
		panic(err)
	}
	return s
}

// Contains reports membership. Values outside the code domain are never members.
func (s CodeSet) Contains(code int) bool {
	if code < 0 || code > 31 {
		return false
	}
	return s&(1<<uint(code)) != 0
}

// Intersect returns the codes present in both sets.
func (s CodeSet) Intersect(o CodeSet) CodeSet { return s & o }

// Empty reports whether the set has no members.
func (s CodeSet) Empty() bool { return s == 0 }

// Len returns the number of members.
func (s CodeSet) Len() int { return bits.OnesCount32(uint32(s)) }

// Codes lists the members in ascending order.
func (s CodeSet) Codes() []int {
	out := make([]int, 0, s.Len())
	for c := 1; c <= 22; c++ {
		if s.Contains(c) {
			out = append(out, c)
		}
	}
	return out
}

func (s CodeSet) String() string {
	parts := make([]string, 0, s.Len())
	for _, c := range s.Codes() {
		parts = append(parts, fmt.Sprint(c))
	}
	return "{" + strings.Join(parts, ",") + "}"
}
