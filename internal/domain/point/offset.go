// Package point holds scored and stored point representations.
package point

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/kailas-cloud/vecquery/internal/domain/distance"
)

// OffsetSize is the encoded size of a ScoredPointOffset.
const OffsetSize = 8

// ScoredPointOffset is a point addressed by its internal offset within a
// result set, with a score. Ordering considers the score only.
type ScoredPointOffset struct {
	Offset uint32  `json:"offset"`
	Score  float32 `json:"score"`
}

// Compare orders offsets by score (total order, NaN highest). Offsets with equal
// scores compare equal.
func (p ScoredPointOffset) Compare(other ScoredPointOffset) int {
	return distance.CompareScores(p.Score, other.Score)
}

// AppendBinary appends the 8-byte little-endian encoding: offset then score bits.
func (p ScoredPointOffset) AppendBinary(b []byte) ([]byte, error) {
	b = binary.LittleEndian.AppendUint32(b, p.Offset)
	return binary.LittleEndian.AppendUint32(b, math.Float32bits(p.Score)), nil
}

// MarshalBinary encodes p into OffsetSize bytes.
func (p ScoredPointOffset) MarshalBinary() ([]byte, error) {
	return p.AppendBinary(make([]byte, 0, OffsetSize))
}

// UnmarshalBinary decodes exactly OffsetSize bytes.
func (p *ScoredPointOffset) UnmarshalBinary(data []byte) error {
	if len(data) != OffsetSize {
		return fmt.Errorf("scored point offset: want %d bytes, got %d", OffsetSize, len(data))
	}
	p.Offset = binary.LittleEndian.Uint32(data[:4])
	p.Score = math.Float32frombits(binary.LittleEndian.Uint32(data[4:]))
	return nil
}
