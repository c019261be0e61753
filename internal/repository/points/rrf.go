package points

// rrfK is the Reciprocal Rank Fusion constant (standard value from Cormack et al. 2009).
const rrfK = 60

// fuseRRF merges ranked lists via Reciprocal Rank Fusion.
// score(d) = sum of 1/(k + rank_i(d)) for each ranking where d appears.
// The first occurrence of a point is kept (it carries the vectors of its prefetch).
func fuseRRF(lists [][]candidate, topK int) []candidate {
	merged := make(map[uint64]int)
	var fused []candidate

	for _, list := range lists {
		for rank, c := range list {
			s := float32(1.0 / float64(rrfK+rank+1))
			if i, ok := merged[uint64(c.id)]; ok {
				fused[i].score += s
				continue
			}
			c.score = s
			merged[uint64(c.id)] = len(fused)
			fused = append(fused, c)
		}
	}

	sortRanked(fused, descending)
	if topK >= 0 && len(fused) > topK {
		fused = fused[:topK]
	}
	return fused
}
