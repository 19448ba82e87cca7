// Package numerology holds the digit arithmetic the signal calendar is built on.
package numerology

// Reducer collapses a positive integer into a numeric code.
type Reducer func(n int) int

// IsMaster reports whether n is a master number (11 or 22).
func IsMaster(n int) bool { return n == 11 || n == 22 }

// DigitSum returns the sum of the base-10 digits of n, ignoring sign.
func DigitSum(n int) int {
	if n < 0 {
		n = -n
	}
	s := 0
	for n > 0 {
		s += n % 10
		n /= 10
	}
	return s
}

// Reduce sums digits until the value is 1-9 or a master number.
// It halts the moment the running value is 11 or 22, so Reduce(38) == 11.
func Reduce(n int) int {
	for n > 9 && !IsMaster(n) {
		n = DigitSum(n)
	}
	return n
}

// ReduceFully sums digits down to a single digit, ignoring master numbers.
// Older calendar revisions used this rule.
func ReduceFully(n int) int {
	for n > 9 {
		n = DigitSum(n)
	}
	return n
}

// HourWeight maps a clock hour to its vibration weight: 0 and 12 weigh 12,
// every other hour weighs its 12-hour clock value.
// An hour outside 0-23 is a programming error and panics.
func HourWeight(hour int) int {
	if hour < 0 || hour > 23 {
		panic("numerology: hour out of range 0-23")
	}
	if hour == 0 || hour == 12 {
		return 12
	}
	return (hour-1)%12 + 1
}
