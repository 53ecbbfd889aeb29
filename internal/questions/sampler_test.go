package questions

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/elec-mate/elecmate-engine/internal/models"
)

func fixtureBank(basic, intermediate, advanced int) []models.Question {
	var bank []models.Question
	id := 1
	add := func(n int, d models.QuestionDifficulty) {
		for i := 0; i < n; i++ {
			bank = append(bank, models.Question{
				ID:            id,
				Question:      "q",
				Options:       []string{"a", "b", "c", "d"},
				CorrectAnswer: id % 4,
				Difficulty:    d,
			})
			id++
		}
	}
	add(basic, models.QuestionBasic)
	add(intermediate, models.QuestionIntermediate)
	add(advanced, models.QuestionAdvanced)
	return bank
}

func countByDifficulty(qs []models.Question) map[models.QuestionDifficulty]int {
	out := make(map[models.QuestionDifficulty]int)
	for _, q := range qs {
		out[q.Difficulty]++
	}
	return out
}

func seeded() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func TestQuotasDefaultMix(t *testing.T) {
	q := Quotas(30, models.DefaultMix())
	require.Equal(t, map[models.QuestionDifficulty]int{
		models.QuestionBasic:        12,
		models.QuestionIntermediate: 14,
		models.QuestionAdvanced:     4,
	}, q)
}

func TestQuotasRemainderTies(t *testing.T) {
	mix := models.Mix{models.QuestionBasic: 1, models.QuestionIntermediate: 1, models.QuestionAdvanced: 1}
	q := Quotas(10, mix)
	require.Equal(t, 4, q[models.QuestionBasic])
	require.Equal(t, 3, q[models.QuestionIntermediate])
	require.Equal(t, 3, q[models.QuestionAdvanced])
}

func TestQuotasEmptyMix(t *testing.T) {
	require.Nil(t, Quotas(30, nil))
	require.Nil(t, Quotas(30, models.Mix{models.QuestionBasic: 0}))
}

func TestSampleHonoursMix(t *testing.T) {
	bank := fixtureBank(20, 20, 10)
	got := Sample(bank, 30, models.DefaultMix(), seeded())

	require.Len(t, got, 30)
	require.Equal(t, map[models.QuestionDifficulty]int{
		models.QuestionBasic:        12,
		models.QuestionIntermediate: 14,
		models.QuestionAdvanced:     4,
	}, countByDifficulty(got))

	seen := map[int]bool{}
	for _, q := range got {
		require.False(t, seen[q.ID], "question %d drawn twice", q.ID)
		seen[q.ID] = true
	}
}

func TestSampleDeterministicWithSeed(t *testing.T) {
	bank := fixtureBank(20, 20, 10)
	a := Sample(bank, 30, models.DefaultMix(), seeded())
	b := Sample(bank, 30, models.DefaultMix(), seeded())
	require.Equal(t, a, b)
}

func TestSampleTopsUpShortBucket(t *testing.T) {
	bank := fixtureBank(20, 20, 1)
	got := Sample(bank, 30, models.DefaultMix(), seeded())

	require.Len(t, got, 30)
	require.Equal(t, 1, countByDifficulty(got)[models.QuestionAdvanced])
}

func TestSampleSmallBankReturnsWholeBank(t *testing.T) {
	bank := fixtureBank(3, 2, 1)
	got := Sample(bank, 30, models.DefaultMix(), seeded())
	require.ElementsMatch(t, bank, got)
}

func TestSampleDoesNotModifyBank(t *testing.T) {
	bank := fixtureBank(10, 10, 10)
	before := append([]models.Question(nil), bank...)

	Sample(bank, 12, models.DefaultMix(), seeded())
	require.Equal(t, before, bank)
}

func TestSampleZeroTotal(t *testing.T) {
	require.Empty(t, Sample(fixtureBank(2, 2, 2), 0, models.DefaultMix(), seeded()))
}
