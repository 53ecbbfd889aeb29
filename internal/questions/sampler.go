package questions

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/elec-mate/elecmate-engine/internal/models"
)

const quotaEpsilon = 1e-9

// Sample draws total questions from bank honouring the difficulty mix.
// The bank is not modified. When the bank holds fewer than total questions
// the whole bank is returned in random order.
func Sample(bank []models.Question, total int, mix models.Mix, rng *rand.Rand) []models.Question {
	if total <= 0 || len(bank) == 0 {
		return []models.Question{}
	}

	pool := append([]models.Question(nil), bank...)
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	if total >= len(pool) {
		return pool
	}

	quotas := Quotas(total, mix)
	if quotas == nil {
		return pool[:total]
	}

	picked := make([]models.Question, 0, total)
	var rest []models.Question
	taken := make(map[models.QuestionDifficulty]int, len(quotas))

	for _, q := range pool {
		if quota, ok := quotas[q.Difficulty]; ok && taken[q.Difficulty] < quota {
			taken[q.Difficulty]++
			picked = append(picked, q)
			continue
		}
		rest = append(rest, q)
	}

	// top up short buckets from whatever is left
	for i := 0; len(picked) < total && i < len(rest); i++ {
		picked = append(picked, rest[i])
	}

	rng.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	return picked
}

// Quotas splits total across difficulty bands by weight. Floors are taken
// first and the remainder goes to the largest fractional parts, ties broken
// basic, intermediate, advanced. Returns nil when the mix has no positive weight.
func Quotas(total int, mix models.Mix) map[models.QuestionDifficulty]int {
	var sum float64
	for _, d := range models.QuestionDifficulties {
		if w := mix[d]; w > 0 {
			sum += w
		}
	}
	if sum == 0 {
		return nil
	}

	type share struct {
		difficulty models.QuestionDifficulty
		frac       float64
		order      int
	}

	quotas := make(map[models.QuestionDifficulty]int, len(models.QuestionDifficulties))
	shares := make([]share, 0, len(models.QuestionDifficulties))
	assigned := 0

	for i, d := range models.QuestionDifficulties {
		w := mix[d]
		if w <= 0 {
			continue
		}
		exact := float64(total) * w / sum
		n := int(math.Floor(exact + quotaEpsilon))
		quotas[d] = n
		assigned += n
		shares = append(shares, share{difficulty: d, frac: exact - float64(n), order: i})
	}

	sort.SliceStable(shares, func(i, j int) bool {
		if math.Abs(shares[i].frac-shares[j].frac) > quotaEpsilon {
			return shares[i].frac > shares[j].frac
		}
		return shares[i].order < shares[j].order
	})

	for i := 0; assigned < total; i++ {
		quotas[shares[i%len(shares)].difficulty]++
		assigned++
	}

	return quotas
}
