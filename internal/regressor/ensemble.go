package regressor

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Regressor maps a scaled feature vector to one scalar prediction
type Regressor interface {
	Predict(x []float64) (float64, error)
}

// Func adapts a plain function to Regressor
type Func func(x []float64) (float64, error)

// Predict calls f
func (f Func) Predict(x []float64) (float64, error) { return f(x) }

// Split rule used when comparing a feature against a node threshold
type Split string

const (
	// SplitLess sends x < threshold left (XGBoost)
	SplitLess Split = "lt"
	// SplitLessEqual sends x <= threshold left (scikit-learn)
	SplitLessEqual Split = "lte"
)

// leaf marks a node without children
const leaf = -1

// maxDepth bounds tree traversal so a malformed artifact cannot loop
const maxDepth = 64

// Node is one node of a regression tree. A node with Left == -1 is a leaf
// and only Value is meaningful.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

// Tree is a flat array of nodes rooted at index 0
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Ensemble is a gradient boosted tree regressor exported from XGBoost or
// scikit-learn. Prediction = BaseScore + LearningRate * sum(tree(x)).
type Ensemble struct {
	BaseScore    float64 `json:"base_score"`
	LearningRate float64 `json:"learning_rate"`
	NumFeatures  int     `json:"num_features"`
	Split        Split   `json:"split,omitempty"`
	Trees        []Tree  `json:"trees"`
}

// ErrMalformed is returned for structurally invalid artifacts
var ErrMalformed = errors.New("malformed model artifact")

// Load reads an ensemble artifact from disk. defaultSplit applies when the
// artifact does not name its split rule.
func Load(path string, defaultSplit Split) (*Ensemble, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var e Ensemble
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if e.Split == "" {
		e.Split = defaultSplit
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}

// Validate checks the tree structure before any prediction is made
func (e *Ensemble) Validate() error {
	if e.NumFeatures <= 0 {
		return fmt.Errorf("%w: num_features must be positive", ErrMalformed)
	}
	if e.Split != SplitLess && e.Split != SplitLessEqual {
		return fmt.Errorf("%w: unknown split rule %q", ErrMalformed, e.Split)
	}
	if len(e.Trees) == 0 {
		return fmt.Errorf("%w: no trees", ErrMalformed)
	}

	for t, tree := range e.Trees {
		if len(tree.Nodes) == 0 {
			return fmt.Errorf("%w: tree %d is empty", ErrMalformed, t)
		}
		for n, node := range tree.Nodes {
			if node.Left == leaf {
				continue
			}
			if node.Feature < 0 || node.Feature >= e.NumFeatures {
				return fmt.Errorf("%w: tree %d node %d: feature %d out of range", ErrMalformed, t, n, node.Feature)
			}
			// children always follow their parent in exported trees
			if node.Left <= n || node.Left >= len(tree.Nodes) || node.Right <= n || node.Right >= len(tree.Nodes) {
				return fmt.Errorf("%w: tree %d node %d: child index out of range", ErrMalformed, t, n)
			}
		}
	}
	return nil
}

// Predict evaluates every tree on x
func (e *Ensemble) Predict(x []float64) (float64, error) {
	if len(x) < e.NumFeatures {
		return 0, fmt.Errorf("expected %d features, got %d", e.NumFeatures, len(x))
	}

	sum := 0.0
	for t := range e.Trees {
		v, err := e.evalTree(&e.Trees[t], x)
		if err != nil {
			return 0, fmt.Errorf("tree %d: %w", t, err)
		}
		sum += v
	}
	return e.BaseScore + e.LearningRate*sum, nil
}

func (e *Ensemble) evalTree(tree *Tree, x []float64) (float64, error) {
	idx := 0
	for depth := 0; depth < maxDepth; depth++ {
		node := tree.Nodes[idx]
		if node.Left == leaf {
			return node.Value, nil
		}
		if e.goesLeft(x[node.Feature], node.Threshold) {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
	return 0, fmt.Errorf("%w: depth exceeds %d", ErrMalformed, maxDepth)
}

func (e *Ensemble) goesLeft(v, threshold float64) bool {
	if e.Split == SplitLess {
		return v < threshold
	}
	return v <= threshold
}
