package eval7

import (
	"encoding/binary"

	chd "github.com/opencoff/go-chd"
)

// finder is the lookup half of a frozen CHD table.
type finder interface {
	Find(key []byte) uint64
}

// denseIndex is a minimal perfect hash (CHD) over a fixed set of uint32
// keys, mapping each key to a dense uint16 ordinal. Building it costs one
// pass at startup; lookups afterwards are O(1) with no probing, which is
// what makes the showdown inner loop (C6) affordable at billions of calls.
type denseIndex struct {
	mph   finder
	dense []uint16
}

func keyBytes(k uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, k)
	return b
}

// buildDenseIndex builds a perfect hash over sortedKeys (already ascending,
// already deduplicated) and records, for each key, its 1-based rank within
// sortedKeys as the dense ordinal returned by lookup.
func buildDenseIndex(sortedKeys []uint32) (*denseIndex, error) {
	builder, err := chd.New()
	if err != nil {
		return nil, err
	}
	for _, k := range sortedKeys {
		if err := builder.Add(keyBytes(k)); err != nil {
			return nil, err
		}
	}
	mph, err := builder.Freeze()
	if err != nil {
		return nil, err
	}

	dense := make([]uint16, len(sortedKeys))
	for i, k := range sortedKeys {
		slot := mph.Find(keyBytes(k))
		dense[slot] = uint16(i + 1)
	}
	return &denseIndex{mph: mph, dense: dense}, nil
}

func (d *denseIndex) lookup(key uint32) uint16 {
	return d.dense[d.mph.Find(keyBytes(key))]
}
