// ABOUTME: Forest node type wrapping a caller record with its assembled children
// ABOUTME: JSON encoding splices children into the record object under the configured key

package tree

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// ErrNotObject is returned when a node's record does not encode to a JSON object.
var ErrNotObject = errors.New("tree: record does not encode to a JSON object")

// Node is a record plus the nodes whose parent id equals the record's id.
type Node[T any] struct {
	Record   T
	Children []*Node[T]

	childrenKey string
}

// NewNode creates a detached node with no children.
func NewNode[T any](rec T, childrenKey string) *Node[T] {
	return &Node[T]{Record: rec, Children: []*Node[T]{}, childrenKey: childrenKey}
}

// ChildrenKey is the attribute name the children are attached under.
func (n *Node[T]) ChildrenKey() string {
	if n.childrenKey == "" {
		return DefaultChildrenField
	}
	return n.childrenKey
}

// IsLeaf reports whether the node has no children.
func (n *Node[T]) IsLeaf() bool {
	return len(n.Children) == 0
}

// MarshalJSON encodes the record and adds the children array under ChildrenKey.
func (n *Node[T]) MarshalJSON() ([]byte, error) {
	if n == nil {
		return []byte("null"), nil
	}
	body, err := json.Marshal(n.Record)
	if err != nil {
		return nil, fmt.Errorf("tree: encode record: %w", err)
	}
	body = bytes.TrimSpace(body)
	if len(body) < 2 || body[0] != '{' || body[len(body)-1] != '}' {
		return nil, ErrNotObject
	}

	children := n.Children
	if children == nil {
		children = []*Node[T]{}
	}
	kids, err := json.Marshal(children)
	if err != nil {
		return nil, err
	}
	key, err := json.Marshal(n.ChildrenKey())
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(len(body) + len(kids) + len(key) + 2)
	buf.Write(body[:len(body)-1])
	if len(bytes.TrimSpace(body[1:len(body)-1])) > 0 {
		buf.WriteByte(',')
	}
	buf.Write(key)
	buf.WriteByte(':')
	buf.Write(kids)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalForest encodes a forest as a JSON array; an empty forest is [].
func MarshalForest[T any](forest []*Node[T]) ([]byte, error) {
	if forest == nil {
		forest = []*Node[T]{}
	}
	return json.Marshal(forest)
}
