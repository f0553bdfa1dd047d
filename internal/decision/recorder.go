package decision

import (
	"sync"
	"time"

	"github.com/concordbio/concord/internal/domain"
)

// Recorder receives decisions as the engine makes them. Implementations
// must be safe for concurrent use.
type Recorder interface {
	Record(d Decision)
	// RecordColumnOp appends an operation to the column's alignment
	// decision, creating the decision on first use.
	RecordColumnOp(columnName string, op Operation)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) Record(Decision)                  {}
func (NopRecorder) RecordColumnOp(string, Operation) {}

// NodeRecorder accumulates decisions for a single pipeline node.
type NodeRecorder struct {
	mu       sync.Mutex
	node     Node
	finished bool
}

var _ Recorder = (*NodeRecorder)(nil)

// NewNodeRecorder starts recording for a node in the running state.
func NewNodeRecorder(id, name string, upstreamIDs ...string) *NodeRecorder {
	return &NodeRecorder{
		node: Node{
			ID:          id,
			Name:        name,
			Status:      StatusRunning,
			UpstreamIDs: upstreamIDs,
			StartedAt:   time.Now().UTC(),
		},
	}
}

func (r *NodeRecorder) Record(d Decision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.node.Decisions = append(r.node.Decisions, d)
}

func (r *NodeRecorder) RecordColumnOp(columnName string, op Operation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.node.Decisions {
		a := r.node.Decisions[i].Alignment
		if a != nil && a.ColumnName == columnName {
			a.Operations = append(a.Operations, op)
			return
		}
	}
	r.node.Decisions = append(r.node.Decisions, Decision{
		Type:      TypeColumnAligned,
		Alignment: &ColumnAlignment{ColumnName: columnName, Operations: []Operation{op}},
	})
}

// Finish moves the node out of the running state. Later calls are ignored
// so a failure status set in an error path is not overwritten.
func (r *NodeRecorder) Finish(status Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return
	}
	r.finished = true
	r.node.Status = status
	r.node.FinishedAt = time.Now().UTC()
	r.node.Duration = r.node.FinishedAt.Sub(r.node.StartedAt).Seconds()
}

// Decisions returns a snapshot of the recorded decisions.
func (r *NodeRecorder) Decisions() []Decision {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Decision, len(r.node.Decisions))
	copy(out, r.node.Decisions)
	return out
}

// Mappings collects every entity mapping recorded across all column
// alignments, in recording order.
func (r *NodeRecorder) Mappings() []domain.Mapping {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Mapping
	for _, d := range r.node.Decisions {
		if d.Alignment == nil {
			continue
		}
		for _, op := range d.Alignment.Operations {
			if op.Type == OpMapping {
				out = append(out, op.Mappings...)
			}
		}
	}
	return out
}

// Node returns a snapshot of the node.
func (r *NodeRecorder) Node() Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.node
	n.Decisions = make([]Decision, len(r.node.Decisions))
	copy(n.Decisions, r.node.Decisions)
	return n
}
