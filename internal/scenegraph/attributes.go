package scenegraph

import (
	"errors"
	"fmt"

	"github.com/banshee-data/meshseg/internal/bbox"
	"github.com/banshee-data/meshseg/internal/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrAttributeKind is returned by the typed accessors when a node does not
// carry the requested attribute variant.
var ErrAttributeKind = errors.New("node has unexpected attribute kind")

// AttributeKind tags the concrete attribute type stored on a node.
type AttributeKind int

const (
	KindSemantic AttributeKind = iota + 1
	KindObject
	KindPlace
)

func (k AttributeKind) String() string {
	switch k {
	case KindSemantic:
		return "semantic"
	case KindObject:
		return "object"
	case KindPlace:
		return "place"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Attributes is the tagged variant stored on every node.
type Attributes interface {
	Kind() AttributeKind
	NodePosition() r3.Vec
}

// SemanticAttributes describe a node with a semantic class and extent.
type SemanticAttributes struct {
	Name          string
	Position      r3.Vec
	Color         mesh.Color
	BoundingBox   bbox.BoundingBox
	SemanticLabel mesh.Label
}

func (a *SemanticAttributes) Kind() AttributeKind  { return KindSemantic }
func (a *SemanticAttributes) NodePosition() r3.Vec { return a.Position }

// ObjectAttributes describe a tracked object.
type ObjectAttributes struct {
	SemanticAttributes
}

func (a *ObjectAttributes) Kind() AttributeKind { return KindObject }

// PlaceAttributes describe a free-space place that objects can be linked to.
type PlaceAttributes struct {
	Name     string
	Position r3.Vec
	Distance float64 // distance to nearest obstacle (metres)
}

func (a *PlaceAttributes) Kind() AttributeKind  { return KindPlace }
func (a *PlaceAttributes) NodePosition() r3.Vec { return a.Position }

// ObjectAttrs returns the node's object attributes, or ErrAttributeKind.
func ObjectAttrs(n *Node) (*ObjectAttributes, error) {
	if n == nil {
		return nil, ErrNodeNotFound
	}
	attrs, ok := n.attrs.(*ObjectAttributes)
	if !ok {
		return nil, fmt.Errorf("node %s: want %s, have %s: %w", n.ID, KindObject, kindOf(n.attrs), ErrAttributeKind)
	}
	return attrs, nil
}

// SemanticAttrs returns the semantic attributes of a semantic or object
// node, or ErrAttributeKind.
func SemanticAttrs(n *Node) (*SemanticAttributes, error) {
	if n == nil {
		return nil, ErrNodeNotFound
	}
	switch attrs := n.attrs.(type) {
	case *SemanticAttributes:
		return attrs, nil
	case *ObjectAttributes:
		return &attrs.SemanticAttributes, nil
	default:
		return nil, fmt.Errorf("node %s: want %s, have %s: %w", n.ID, KindSemantic, kindOf(n.attrs), ErrAttributeKind)
	}
}

// PlaceAttrs returns the node's place attributes, or ErrAttributeKind.
func PlaceAttrs(n *Node) (*PlaceAttributes, error) {
	if n == nil {
		return nil, ErrNodeNotFound
	}
	attrs, ok := n.attrs.(*PlaceAttributes)
	if !ok {
		return nil, fmt.Errorf("node %s: want %s, have %s: %w", n.ID, KindPlace, kindOf(n.attrs), ErrAttributeKind)
	}
	return attrs, nil
}

func kindOf(a Attributes) string {
	if a == nil {
		return "none"
	}
	return a.Kind().String()
}
