package medal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/shared"
)

// mapResolver resolves fields from a fixed map; unknown fields are 0, like
// the real resolver.
type mapResolver map[string]float64

func (m mapResolver) Resolve(field string) (float64, error) {
	return m[field], nil
}

func TestParseCondition_CatalogFormat(t *testing.T) {
	raw := []byte(`{"type":"AND","rules":[{"field":"completion_percentage","operator":"==","value":100}]}`)

	node, err := ParseCondition(raw)
	require.NoError(t, err)
	require.NotNil(t, node)

	assert.Equal(t, CombinatorAnd, node.Combinator)
	require.Len(t, node.Children, 1)

	leaf := node.Children[0]
	assert.True(t, leaf.IsLeaf())
	assert.Equal(t, "completion_percentage", leaf.Field)
	assert.Equal(t, OpEq, leaf.Op)
	assert.Equal(t, 100.0, leaf.Value)
}

func TestParseCondition_NestedComposite(t *testing.T) {
	raw := []byte(`{
		"type": "OR",
		"rules": [
			{"type":"AND","rules":[
				{"field":"completion_percentage","operator":"==","value":100},
				{"field":"average_rarity","operator":"<","value":10}
			]},
			{"field":"streak_days","operator":">=","value":7}
		]
	}`)

	node, err := ParseCondition(raw)
	require.NoError(t, err)

	assert.Equal(t, CombinatorOr, node.Combinator)
	require.Len(t, node.Children, 2)
	assert.False(t, node.Children[0].IsLeaf())
	assert.True(t, node.Children[1].IsLeaf())

	ok, err := node.Evaluate(mapResolver{"streak_days": 10})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = node.Evaluate(mapResolver{"completion_percentage": 100, "average_rarity": 5})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = node.Evaluate(mapResolver{"completion_percentage": 100, "average_rarity": 50})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParseCondition_Malformed(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"unknown combinator", `{"type":"XOR","rules":[{"field":"a","operator":"==","value":1}]}`},
		{"unknown operator", `{"type":"AND","rules":[{"field":"a","operator":"~=","value":1}]}`},
		{"leaf missing value", `{"type":"AND","rules":[{"field":"a","operator":"=="}]}`},
		{"leaf missing field", `{"type":"AND","rules":[{"operator":"==","value":1}]}`},
		{"not json", `not json at all`},
		{"empty", ``},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			node, err := ParseCondition([]byte(tc.raw))
			assert.Nil(t, node)
			require.Error(t, err)
			assert.True(t, shared.IsValidation(err), "expected a validation error, got %v", err)
		})
	}
}

func TestEvaluate_AndOrSemantics(t *testing.T) {
	pass := NewLeaf("x", OpEq, 1)
	fail := NewLeaf("x", OpEq, 2)
	resolver := mapResolver{"x": 1}

	and := NewComposite(CombinatorAnd, pass, fail)
	ok, err := and.Evaluate(resolver)
	require.NoError(t, err)
	assert.False(t, ok, "AND [true,false] must be false")

	or := NewComposite(CombinatorOr, pass, fail)
	ok, err = or.Evaluate(resolver)
	require.NoError(t, err)
	assert.True(t, ok, "OR [true,false] must be true")
}

func TestEvaluate_EmptyComposites(t *testing.T) {
	resolver := mapResolver{}

	emptyAnd := NewComposite(CombinatorAnd)
	ok, err := emptyAnd.Evaluate(resolver)
	require.NoError(t, err)
	assert.True(t, ok, "empty AND is vacuously true")

	emptyOr := NewComposite(CombinatorOr)
	ok, err = emptyOr.Evaluate(resolver)
	require.NoError(t, err)
	assert.False(t, ok, "empty OR is vacuously false")
}

func TestOperator_Compare(t *testing.T) {
	cases := []struct {
		op       Operator
		actual   float64
		expected float64
		want     bool
	}{
		{OpEq, 100, 100, true},
		{OpEq, 99.99, 100, false},
		{OpNeq, 5, 10, true},
		{OpLt, 9.5, 10, true},
		{OpLt, 10, 10, false},
		{OpLte, 10, 10, true},
		{OpGt, 31, 30, true},
		{OpGte, 30, 30, true},
		{OpGte, 29, 30, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.op.Compare(tc.actual, tc.expected),
			"%v %s %v", tc.actual, tc.op, tc.expected)
	}
}

func TestConditionNode_MarshalRoundTrip(t *testing.T) {
	raw := []byte(`{"type":"AND","rules":[{"field":"completion_percentage","operator":"==","value":100},{"field":"months_dormant","operator":">=","value":6}]}`)

	node, err := ParseCondition(raw)
	require.NoError(t, err)

	out, err := node.MarshalJSON()
	require.NoError(t, err)

	reparsed, err := ParseCondition(out)
	require.NoError(t, err)
	assert.Equal(t, node, reparsed)
}
