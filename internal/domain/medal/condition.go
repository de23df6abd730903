package medal

import (
	"encoding/json"
	"fmt"

	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONDITION LANGUAGE
// A condition tree is a composite of AND/OR nodes over numeric comparison
// leaves. The catalog stores trees as JSON: {"type":"AND","rules":[...]},
// where a rule carrying "type" is itself a nested composite. Combinators and
// operators are closed enums validated when the catalog row is parsed, so a
// malformed definition is quarantined once at load instead of failing every
// evaluation.
// ══════════════════════════════════════════════════════════════════════════════

// Combinator joins the children of a composite node.
type Combinator string

const (
	CombinatorAnd Combinator = "AND"
	CombinatorOr  Combinator = "OR"
)

// IsValid checks if the combinator is known.
func (c Combinator) IsValid() bool {
	return c == CombinatorAnd || c == CombinatorOr
}

// Operator compares a resolved metric against a rule value.
type Operator string

const (
	OpEq  Operator = "=="
	OpNeq Operator = "!="
	OpLt  Operator = "<"
	OpLte Operator = "<="
	OpGt  Operator = ">"
	OpGte Operator = ">="
)

// IsValid checks if the operator is known.
func (o Operator) IsValid() bool {
	switch o {
	case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte:
		return true
	}
	return false
}

// Compare applies the operator to (actual, expected).
func (o Operator) Compare(actual, expected float64) bool {
	switch o {
	case OpEq:
		return actual == expected
	case OpNeq:
		return actual != expected
	case OpLt:
		return actual < expected
	case OpLte:
		return actual <= expected
	case OpGt:
		return actual > expected
	case OpGte:
		return actual >= expected
	}
	return false
}

// FieldResolver supplies metric values for condition leaves.
type FieldResolver interface {
	Resolve(field string) (float64, error)
}

// FieldResolverFunc adapts a function to the FieldResolver interface.
type FieldResolverFunc func(field string) (float64, error)

// Resolve implements FieldResolver.
func (f FieldResolverFunc) Resolve(field string) (float64, error) {
	return f(field)
}

// ConditionNode is either a composite (Combinator + Children) or a leaf
// (Field + Op + Value). Composites may nest to arbitrary depth, although
// catalog trees observed in practice are at most two levels deep.
type ConditionNode struct {
	// Composite part
	Combinator Combinator
	Children   []ConditionNode

	// Leaf part
	Field string
	Op    Operator
	Value float64

	leaf bool
}

// NewLeaf builds a comparison leaf.
func NewLeaf(field string, op Operator, value float64) ConditionNode {
	return ConditionNode{Field: field, Op: op, Value: value, leaf: true}
}

// NewComposite builds a composite node.
func NewComposite(c Combinator, children ...ConditionNode) ConditionNode {
	return ConditionNode{Combinator: c, Children: children}
}

// IsLeaf reports whether the node is a comparison leaf.
func (n *ConditionNode) IsLeaf() bool {
	return n.leaf
}

// Validate checks that every node in the tree uses known combinators and
// operators. Unknown metric names are deliberately NOT rejected here: they
// resolve to 0 at evaluation time so forward-declared fields degrade silently.
func (n *ConditionNode) Validate() error {
	if n.leaf {
		if n.Field == "" {
			return shared.WrapError("medal", "ParseCondition", shared.ErrInvalidFormat, "leaf missing field", nil)
		}
		if !n.Op.IsValid() {
			return shared.WrapError("medal", "ParseCondition", shared.ErrInvalidFormat,
				fmt.Sprintf("unknown operator %q", n.Op), nil)
		}
		return nil
	}

	if !n.Combinator.IsValid() {
		return shared.WrapError("medal", "ParseCondition", shared.ErrInvalidFormat,
			fmt.Sprintf("unknown combinator %q", n.Combinator), nil)
	}
	for i := range n.Children {
		if err := n.Children[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Evaluate walks the tree against the resolver.
//
// AND short-circuits to false on the first failing child; an empty child list
// is vacuously true. OR short-circuits to true on the first passing child; an
// empty child list is vacuously false. Both are explicit policy, not an
// accident of loop structure.
func (n *ConditionNode) Evaluate(resolver FieldResolver) (bool, error) {
	if n.leaf {
		actual, err := resolver.Resolve(n.Field)
		if err != nil {
			return false, err
		}
		return n.Op.Compare(actual, n.Value), nil
	}

	switch n.Combinator {
	case CombinatorAnd:
		for i := range n.Children {
			ok, err := n.Children[i].Evaluate(resolver)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil

	case CombinatorOr:
		for i := range n.Children {
			ok, err := n.Children[i].Evaluate(resolver)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}

	// Unreachable for validated trees.
	return false, shared.ErrMalformedCondition
}

// ──────────────────────────────────────────────────────────────────────────────
// JSON wire format (catalog compatibility)
// ──────────────────────────────────────────────────────────────────────────────

// conditionJSON mirrors the catalog's stored representation. A node is a
// composite when "type" is present, otherwise a leaf.
type conditionJSON struct {
	Type     string            `json:"type,omitempty"`
	Rules    []json.RawMessage `json:"rules,omitempty"`
	Field    string            `json:"field,omitempty"`
	Operator string            `json:"operator,omitempty"`
	Value    *float64          `json:"value,omitempty"`
}

// ParseCondition parses a catalog condition document into a validated tree.
// Returns shared.ErrMalformedCondition (wrapped) for anything that does not
// conform; callers quarantine such definitions.
func ParseCondition(raw []byte) (*ConditionNode, error) {
	if len(raw) == 0 {
		return nil, shared.ErrMalformedCondition
	}
	node, err := parseConditionNode(raw)
	if err != nil {
		return nil, err
	}
	if err := node.Validate(); err != nil {
		return nil, err
	}
	return &node, nil
}

func parseConditionNode(raw []byte) (ConditionNode, error) {
	var doc conditionJSON
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ConditionNode{}, shared.WrapError("medal", "ParseCondition", shared.ErrInvalidFormat, "invalid JSON", err)
	}

	// Composite node
	if doc.Type != "" {
		node := ConditionNode{Combinator: Combinator(doc.Type)}
		for _, rawChild := range doc.Rules {
			child, err := parseConditionNode(rawChild)
			if err != nil {
				return ConditionNode{}, err
			}
			node.Children = append(node.Children, child)
		}
		return node, nil
	}

	// Leaf node
	if doc.Field == "" || doc.Operator == "" || doc.Value == nil {
		return ConditionNode{}, shared.WrapError("medal", "ParseCondition", shared.ErrInvalidFormat,
			"leaf missing field, operator or value", nil)
	}
	return NewLeaf(doc.Field, Operator(doc.Operator), *doc.Value), nil
}

// MarshalJSON renders the tree back into the catalog wire format.
func (n ConditionNode) MarshalJSON() ([]byte, error) {
	if n.leaf {
		return json.Marshal(struct {
			Field    string  `json:"field"`
			Operator string  `json:"operator"`
			Value    float64 `json:"value"`
		}{n.Field, string(n.Op), n.Value})
	}

	rules := make([]json.RawMessage, 0, len(n.Children))
	for i := range n.Children {
		b, err := json.Marshal(n.Children[i])
		if err != nil {
			return nil, err
		}
		rules = append(rules, b)
	}
	return json.Marshal(struct {
		Type  string            `json:"type"`
		Rules []json.RawMessage `json:"rules"`
	}{string(n.Combinator), rules})
}

// UnmarshalJSON parses a single node (without whole-tree validation; use
// ParseCondition for catalog input).
func (n *ConditionNode) UnmarshalJSON(raw []byte) error {
	parsed, err := parseConditionNode(raw)
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}
