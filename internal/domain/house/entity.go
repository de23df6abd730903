// Package house contains the four fixed houses, the sorting quiz and the
// standings views. Дома фиксированы на уровне схемы; новые дома не создаются
// во время работы.
package house

import (
	"time"

	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Archetype is the player-type label a house represents, after Bartle's
// taxonomy of player types.
type Archetype string

const (
	ArchetypeAchiever   Archetype = "achiever"
	ArchetypeExplorer   Archetype = "explorer"
	ArchetypeSocializer Archetype = "socializer"
	ArchetypeKiller     Archetype = "killer"
)

// archetypeOrder is the canonical ordering, matching house IDs 1 through 4.
// Quiz tie-breaks resolve to the earliest archetype in this order.
var archetypeOrder = []Archetype{
	ArchetypeAchiever,
	ArchetypeExplorer,
	ArchetypeSocializer,
	ArchetypeKiller,
}

// IsValid checks that the archetype is one of the four known labels.
func (a Archetype) IsValid() bool {
	switch a {
	case ArchetypeAchiever, ArchetypeExplorer, ArchetypeSocializer, ArchetypeKiller:
		return true
	}
	return false
}

// String returns the string representation of the archetype.
func (a Archetype) String() string {
	return string(a)
}

// HouseID returns the fixed house ID for the archetype, 0 when unknown.
func (a Archetype) HouseID() int64 {
	for i, arch := range archetypeOrder {
		if arch == a {
			return int64(i + 1)
		}
	}
	return 0
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: HOUSE
// ══════════════════════════════════════════════════════════════════════════════

// House is one of the four fixed classes users are sorted into.
type House struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Archetype      Archetype `json:"archetype"`
	Description    string    `json:"description"`
	ColorPrimary   string    `json:"colorPrimary"`
	ColorSecondary string    `json:"colorSecondary"`
	Icon           string    `json:"icon"`
	CreatedAt      time.Time `json:"-"`
}

// Overview is a house joined with its live membership aggregates.
type Overview struct {
	House
	MemberCount int `json:"memberCount"`
	TotalPoints int `json:"totalPoints"`
}

// Standing is a house's position in a cup table, general or seasonal.
type Standing struct {
	HouseID        int64     `json:"id"`
	Name           string    `json:"name"`
	Archetype      Archetype `json:"archetype"`
	ColorPrimary   string    `json:"colorPrimary"`
	ColorSecondary string    `json:"colorSecondary"`
	Icon           string    `json:"icon"`
	Members        int       `json:"members"`
	Points         int       `json:"points"`
	Rank           int       `json:"rank"`
}

// Member is one user inside a house's internal leaderboard.
type Member struct {
	UserID         string `json:"id"`
	Username       string `json:"username"`
	AvatarURL      string `json:"avatarUrl"`
	GeneralPoints  int    `json:"generalPoints"`
	TotalMedals    int    `json:"totalMedals"`
	CompletedGames int    `json:"completedGames"`
	Rank           int    `json:"rank"`
}

// ══════════════════════════════════════════════════════════════════════════════
// SORTING QUIZ
// ══════════════════════════════════════════════════════════════════════════════

// QuizOption is one selectable answer, voting for a single archetype.
type QuizOption struct {
	Text      string    `json:"text"`
	Archetype Archetype `json:"house"`
}

// QuizQuestion is one question of the sorting quiz.
type QuizQuestion struct {
	ID         int64        `json:"id"`
	Question   string       `json:"question"`
	Options    []QuizOption `json:"options"`
	OrderIndex int          `json:"orderIndex"`
}

// QuizAnswer is one submitted answer: the archetype the chosen option votes
// for.
type QuizAnswer struct {
	QuestionID int64     `json:"questionId"`
	Archetype  Archetype `json:"selectedHouse"`
}

// QuizResult is the outcome of scoring a quiz submission.
type QuizResult struct {
	Winner    Archetype         `json:"winner"`
	HouseID   int64             `json:"houseId"`
	Breakdown map[Archetype]int `json:"breakdown"`
}

// ScoreQuiz counts votes per archetype and returns the winner. Answers with
// an unknown archetype are rejected rather than silently dropped. Ties break
// to the earliest archetype in canonical order, so a given submission always
// sorts to the same house.
func ScoreQuiz(answers []QuizAnswer) (*QuizResult, error) {
	if len(answers) == 0 {
		return nil, shared.ErrEmptyQuiz
	}

	breakdown := make(map[Archetype]int, len(archetypeOrder))
	for _, arch := range archetypeOrder {
		breakdown[arch] = 0
	}

	for _, answer := range answers {
		if !answer.Archetype.IsValid() {
			return nil, shared.ErrUnknownArchetype
		}
		breakdown[answer.Archetype]++
	}

	winner := archetypeOrder[0]
	for _, arch := range archetypeOrder[1:] {
		if breakdown[arch] > breakdown[winner] {
			winner = arch
		}
	}

	return &QuizResult{
		Winner:    winner,
		HouseID:   winner.HouseID(),
		Breakdown: breakdown,
	}, nil
}
