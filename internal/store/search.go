package store

// searchRight returns the position at which item should be inserted into
// the ascending sequence of n elements so that it lands after every element
// comparing equal to it. at(i) returns the i-th element.
func searchRight[T any](n int, at func(i int) T, item T, cmp func(a, b T) int) int {
	low, high := 0, n
	for low < high {
		mid := int(uint(low+high) >> 1)
		if cmp(at(mid), item) <= 0 {
			low = mid + 1
		} else {
			high = mid
		}
	}
	return low
}

// insertAt inserts v into s at position i.
func insertAt[T any](s []T, i int, v T) []T {
	var zero T
	s = append(s, zero)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}
