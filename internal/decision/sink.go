package decision

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var ErrNodeNotFound = errors.New("node not found")

// Sink persists finished nodes.
type Sink interface {
	Write(runID string, node Node) error
}

// DirSink writes each node as <root>/<runID>/<nodeID>.json.
type DirSink struct {
	root string
}

var _ Sink = (*DirSink)(nil)

func NewDirSink(root string) *DirSink {
	return &DirSink{root: root}
}

func (s *DirSink) Write(runID string, node Node) error {
	dir := filepath.Join(s.root, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating run directory: %w", err)
	}
	data, err := json.Marshal(node)
	if err != nil {
		return fmt.Errorf("encoding node: %w", err)
	}
	path := filepath.Join(dir, node.ID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing node: %w", err)
	}
	return nil
}

// ListNodes returns every node recorded for a run, ordered by start time.
func (s *DirSink) ListNodes(runID string) ([]Node, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, runID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNodeNotFound
		}
		return nil, err
	}
	nodes := make([]Node, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		node, err := s.readNode(filepath.Join(s.root, runID, entry.Name()))
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, *node)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].StartedAt.Before(nodes[j].StartedAt) })
	return nodes, nil
}

func (s *DirSink) GetNode(runID, nodeID string) (*Node, error) {
	node, err := s.readNode(filepath.Join(s.root, runID, nodeID+".json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNodeNotFound
		}
		return nil, err
	}
	return node, nil
}

func (s *DirSink) readNode(path string) (*Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var node Node
	if err := json.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("decoding node %s: %w", filepath.Base(path), err)
	}
	return &node, nil
}
