package consistency

// Resolve merges replica responses, keeping items that appear in at least
// required responses. Items keep the order of their first appearance; the first
// seen copy wins.
func Resolve[T any, K comparable](responses [][]T, key func(T) K, required int) []T {
	if len(responses) == 1 {
		return responses[0]
	}
	seen := make(map[K]int)
	var order []T
	for _, resp := range responses {
		inResponse := make(map[K]struct{}, len(resp))
		for _, item := range resp {
			k := key(item)
			if _, dup := inResponse[k]; dup {
				continue
			}
			inResponse[k] = struct{}{}
			if seen[k] == 0 {
				order = append(order, item)
			}
			seen[k]++
		}
	}
	out := make([]T, 0, len(order))
	for _, item := range order {
		if seen[key(item)] >= required {
			out = append(out, item)
		}
	}
	return out
}

// ResolveCount returns the most frequent count among replica responses.
// Ties go to the larger value.
func ResolveCount(counts []int) int {
	freq := make(map[int]int, len(counts))
	best, bestFreq := 0, 0
	for _, c := range counts {
		freq[c]++
		f := freq[c]
		if f > bestFreq || (f == bestFreq && c > best) {
			best, bestFreq = c, f
		}
	}
	return best
}
