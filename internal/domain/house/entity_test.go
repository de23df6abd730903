package house

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/shared"
)

func answers(archs ...Archetype) []QuizAnswer {
	out := make([]QuizAnswer, len(archs))
	for i, a := range archs {
		out[i] = QuizAnswer{QuestionID: int64(i + 1), Archetype: a}
	}
	return out
}

func TestScoreQuiz_MajorityWins(t *testing.T) {
	result, err := ScoreQuiz(answers(
		ArchetypeKiller, ArchetypeKiller, ArchetypeKiller,
		ArchetypeAchiever, ArchetypeExplorer,
	))
	require.NoError(t, err)

	assert.Equal(t, ArchetypeKiller, result.Winner)
	assert.Equal(t, int64(4), result.HouseID)
	assert.Equal(t, 3, result.Breakdown[ArchetypeKiller])
	assert.Equal(t, 1, result.Breakdown[ArchetypeAchiever])
	assert.Equal(t, 0, result.Breakdown[ArchetypeSocializer])
}

func TestScoreQuiz_TieBreaksToCanonicalOrder(t *testing.T) {
	// Two-way tie between explorer and killer resolves to explorer, the
	// earlier archetype, no matter the answer order.
	result, err := ScoreQuiz(answers(ArchetypeKiller, ArchetypeExplorer))
	require.NoError(t, err)
	assert.Equal(t, ArchetypeExplorer, result.Winner)

	result, err = ScoreQuiz(answers(ArchetypeExplorer, ArchetypeKiller))
	require.NoError(t, err)
	assert.Equal(t, ArchetypeExplorer, result.Winner)
}

func TestScoreQuiz_RejectsUnknownArchetype(t *testing.T) {
	_, err := ScoreQuiz([]QuizAnswer{{QuestionID: 1, Archetype: "strategist"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrUnknownArchetype)
}

func TestScoreQuiz_RejectsEmptySubmission(t *testing.T) {
	_, err := ScoreQuiz(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrEmptyQuiz)
}

func TestArchetype_HouseID(t *testing.T) {
	assert.Equal(t, int64(1), ArchetypeAchiever.HouseID())
	assert.Equal(t, int64(2), ArchetypeExplorer.HouseID())
	assert.Equal(t, int64(3), ArchetypeSocializer.HouseID())
	assert.Equal(t, int64(4), ArchetypeKiller.HouseID())
	assert.Equal(t, int64(0), Archetype("unknown").HouseID())
}
