package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/imyuanhui/COMP47360/internal/domain"
)

// Aggregation combines per-tree outputs.
type Aggregation string

const (
	// AggregateSum is gradient boosting: base_score + sum of leaves.
	AggregateSum Aggregation = "sum"
	// AggregateMean is a random forest: mean of leaves.
	AggregateMean Aggregation = "mean"
)

// TreeNode is one node of a decision tree in the artifact file. A node with a
// Leaf is terminal; otherwise x[Feature] < Threshold goes to Yes, else No.
type TreeNode struct {
	Feature   string   `json:"feature,omitempty"`
	Threshold float64  `json:"threshold,omitempty"`
	Yes       int      `json:"yes,omitempty"`
	No        int      `json:"no,omitempty"`
	Leaf      *float64 `json:"leaf,omitempty"`
}

type treeFile struct {
	Aggregate Aggregation  `json:"aggregate"`
	BaseScore float64      `json:"base_score"`
	Trees     [][]TreeNode `json:"trees"`
}

type node struct {
	feature   int
	threshold float64
	yes, no   int
	leaf      float64
	terminal  bool
}

// TreeEnsemble evaluates boosted or bagged decision trees over an aligned vector.
type TreeEnsemble struct {
	aggregate Aggregation
	baseScore float64
	trees     [][]node
	width     int
}

// LoadTreeEnsemble reads an ensemble and resolves node features to schema positions.
func LoadTreeEnsemble(path string, schema domain.FeatureSchema) (*TreeEnsemble, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tree artifact: %w", err)
	}
	var f treeFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode tree artifact %s: %w", path, err)
	}
	return NewTreeEnsemble(f.Aggregate, f.BaseScore, f.Trees, schema)
}

// NewTreeEnsemble validates trees against schema. Node 0 is each tree's root.
func NewTreeEnsemble(agg Aggregation, baseScore float64, trees [][]TreeNode, schema domain.FeatureSchema) (*TreeEnsemble, error) {
	if agg == "" {
		agg = AggregateSum
	}
	if agg != AggregateSum && agg != AggregateMean {
		return nil, fmt.Errorf("unknown aggregate %q", agg)
	}
	if len(trees) == 0 {
		return nil, errors.New("ensemble has no trees")
	}

	e := &TreeEnsemble{aggregate: agg, baseScore: baseScore, width: schema.Len()}
	for ti, tree := range trees {
		if len(tree) == 0 {
			return nil, fmt.Errorf("tree %d is empty", ti)
		}
		nodes := make([]node, len(tree))
		for ni, n := range tree {
			if n.Leaf != nil {
				nodes[ni] = node{leaf: *n.Leaf, terminal: true}
				continue
			}
			idx := schema.Index(n.Feature)
			if idx < 0 {
				return nil, fmt.Errorf("tree %d node %d splits on unknown column %q", ti, ni, n.Feature)
			}
			// Children must point forward so evaluation always terminates.
			if n.Yes <= ni || n.No <= ni || n.Yes >= len(tree) || n.No >= len(tree) {
				return nil, fmt.Errorf("tree %d node %d has invalid children %d/%d", ti, ni, n.Yes, n.No)
			}
			nodes[ni] = node{feature: idx, threshold: n.Threshold, yes: n.Yes, no: n.No}
		}
		e.trees = append(e.trees, nodes)
	}
	return e, nil
}

// Predict implements domain.Model.
func (e *TreeEnsemble) Predict(_ context.Context, x []float64) (float64, error) {
	if len(x) != e.width {
		return 0, fmt.Errorf("vector length %d, model expects %d", len(x), e.width)
	}
	var sum float64
	for _, t := range e.trees {
		sum += walk(t, x)
	}
	if e.aggregate == AggregateMean {
		return e.baseScore + sum/float64(len(e.trees)), nil
	}
	return e.baseScore + sum, nil
}

func walk(t []node, x []float64) float64 {
	i := 0
	for !t[i].terminal {
		if x[t[i].feature] < t[i].threshold {
			i = t[i].yes
		} else {
			i = t[i].no
		}
	}
	return t[i].leaf
}
