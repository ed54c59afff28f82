package storage

import "fmt"

// NodeStorage holds the cumulative-regret and cumulative-strategy buffers
// for one decision node, each sized numActions x numHands for the player
// acting there. Both buffers sit behind a Cell: traversals mutate them from
// worker goroutines with no locking, relying on the node-disjoint access
// invariant the Cell documents.
type NodeStorage struct {
	CumRegret *Cell[Buffer]
	Strategy  *Cell[Buffer]

	numActions int
	numHands   int
	compressed bool
}

// Allocate builds fresh, zeroed buffers for a decision node with the given
// shape. compressed selects the 16-bit+scale representation over float32.
// Allocation is reversible: Reallocate replaces an existing NodeStorage's
// buffers with fresh, zeroed ones.
func Allocate(numActions, numHands int, compressed bool) (*NodeStorage, error) {
	if numActions <= 0 {
		return nil, fmt.Errorf("storage: numActions must be > 0, got %d", numActions)
	}
	if numHands <= 0 {
		return nil, fmt.Errorf("storage: numHands must be > 0, got %d", numHands)
	}
	ns := &NodeStorage{numActions: numActions, numHands: numHands, compressed: compressed}
	if err := ns.reallocate(); err != nil {
		return nil, err
	}
	return ns, nil
}

func (ns *NodeStorage) newBuffer() (Buffer, error) {
	if ns.compressed {
		return NewQuantized16Buffer(ns.numActions, ns.numHands)
	}
	return NewFloat32Buffer(ns.numActions, ns.numHands)
}

func (ns *NodeStorage) reallocate() error {
	regret, err := ns.newBuffer()
	if err != nil {
		return err
	}
	strat, err := ns.newBuffer()
	if err != nil {
		return err
	}
	ns.CumRegret = NewCell[Buffer](regret)
	ns.Strategy = NewCell[Buffer](strat)
	return nil
}

// Reallocate rebuilds this node's buffers in place, discarding their
// contents, switching representation if compressed differs from the
// current one.
func (ns *NodeStorage) Reallocate(compressed bool) error {
	ns.compressed = compressed
	return ns.reallocate()
}

// NumActions reports the node's action-dimension extent.
func (ns *NodeStorage) NumActions() int { return ns.numActions }

// NumHands reports the node's hand-dimension extent.
func (ns *NodeStorage) NumHands() int { return ns.numHands }

// Compressed reports whether this node's buffers use the quantized form.
func (ns *NodeStorage) Compressed() bool { return ns.compressed }
