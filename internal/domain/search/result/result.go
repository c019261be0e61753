// Package result holds the response envelopes of the read operations.
package result

import (
	"github.com/kailas-cloud/vecquery/internal/domain/point"
)

// GroupID is the payload value identifying a group: a string or a number.
type GroupID = any

// PointGroup is one bucket of a grouped search.
type PointGroup struct {
	ID   GroupID
	Hits []point.ScoredPoint
}

// GroupsResult is the response of a grouped search.
type GroupsResult struct {
	Groups []PointGroup
}

// CountResult is the response of a count.
type CountResult struct {
	Count int
}

// ScrollResult is one page of records.
type ScrollResult struct {
	Points []point.Record
	// NextPageOffset is the first ID of the next page, nil on the last page.
	NextPageOffset *point.ID
}

// SearchMatrix holds the nearest neighbours of every sampled point. Row i of
// Nearests lists the neighbours of IDs[i]; offsets index into IDs.
type SearchMatrix struct {
	IDs      []point.ID
	Nearests [][]point.ScoredPointOffset
}

// MatrixPair is one (a, b, score) entry of the pairs rendering.
type MatrixPair struct {
	A     point.ID
	B     point.ID
	Score float32
}

// MatrixOffsets is the sparse-matrix rendering of a search matrix.
type MatrixOffsets struct {
	OffsetsRow []uint32
	OffsetsCol []uint32
	Scores     []float32
	IDs        []point.ID
}

// Pairs renders the matrix as a flat list of pairs, row by row.
func (m SearchMatrix) Pairs() []MatrixPair {
	var out []MatrixPair
	for row, nearest := range m.Nearests {
		for _, n := range nearest {
			out = append(out, MatrixPair{A: m.IDs[row], B: m.IDs[n.Offset], Score: n.Score})
		}
	}
	return out
}

// Offsets renders the matrix in coordinate form.
func (m SearchMatrix) Offsets() MatrixOffsets {
	out := MatrixOffsets{IDs: m.IDs}
	for row, nearest := range m.Nearests {
		for _, n := range nearest {
			out.OffsetsRow = append(out.OffsetsRow, uint32(row))
			out.OffsetsCol = append(out.OffsetsCol, n.Offset)
			out.Scores = append(out.Scores, n.Score)
		}
	}
	return out
}
