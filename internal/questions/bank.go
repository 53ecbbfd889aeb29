package questions

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/elec-mate/elecmate-engine/internal/models"
)

var (
	ErrBankNotFound = errors.New("question bank not found")
	ErrEmptyBank    = errors.New("question bank has no questions")
)

// Bank is one loaded question bank plus the mock exam it backs
type Bank struct {
	exam      models.ExamDefinition
	questions []models.Question

	mu  sync.Mutex
	rng *rand.Rand
}

// NewBank creates a bank drawing with the given random source
func NewBank(exam models.ExamDefinition, questions []models.Question, rng *rand.Rand) *Bank {
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
	}
	exam.BankSize = len(questions)
	return &Bank{exam: exam, questions: questions, rng: rng}
}

// Exam returns the exam definition for this bank
func (b *Bank) Exam() models.ExamDefinition {
	return b.exam
}

// Questions returns a copy of every question in the bank
func (b *Bank) Questions() []models.Question {
	return append([]models.Question(nil), b.questions...)
}

// GetRandomQuestions draws count questions respecting mix
func (b *Bank) GetRandomQuestions(count int, mix models.Mix) ([]models.Question, error) {
	if len(b.questions) == 0 {
		return nil, ErrEmptyBank
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return Sample(b.questions, count, mix, b.rng), nil
}

// Problem is one issue found by ValidateQuestionBank
type Problem struct {
	QuestionID int
	Message    string
}

// ValidateQuestionBank reports structural problems. It only logs; sessions
// never depend on the result.
func (b *Bank) ValidateQuestionBank() []Problem {
	var problems []Problem
	seen := make(map[int]bool, len(b.questions))
	perDifficulty := make(map[models.QuestionDifficulty]int)

	for _, q := range b.questions {
		if seen[q.ID] {
			problems = append(problems, Problem{q.ID, "duplicate question id"})
		}
		seen[q.ID] = true

		if len(q.Options) < 2 {
			problems = append(problems, Problem{q.ID, "fewer than two options"})
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			problems = append(problems, Problem{q.ID, "correct answer out of range"})
		}
		if strings.TrimSpace(q.Explanation) == "" {
			problems = append(problems, Problem{q.ID, "missing explanation"})
		}
		if q.Difficulty == "" {
			problems = append(problems, Problem{q.ID, "missing difficulty"})
		}
		perDifficulty[q.Difficulty]++
	}

	for _, p := range problems {
		slog.Warn("question bank problem", "bank", b.exam.ID, "question_id", p.QuestionID, "problem", p.Message)
	}
	slog.Info("question bank validated",
		"bank", b.exam.ID,
		"questions", len(b.questions),
		"basic", perDifficulty[models.QuestionBasic],
		"intermediate", perDifficulty[models.QuestionIntermediate],
		"advanced", perDifficulty[models.QuestionAdvanced],
		"problems", len(problems),
	)
	return problems
}

// Registry holds every loaded bank keyed by exam ID
type Registry struct {
	mu    sync.RWMutex
	banks map[string]*Bank
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{banks: make(map[string]*Bank)}
}

// Add registers a bank under its exam ID
func (r *Registry) Add(b *Bank) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.banks[b.exam.ID] = b
}

// Bank returns the bank for an exam
func (r *Registry) Bank(examID string) (*Bank, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.banks[examID]
	if !ok {
		return nil, ErrBankNotFound
	}
	return b, nil
}

// ListExams returns every exam definition sorted by ID
func (r *Registry) ListExams() []models.ExamDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.ExamDefinition, 0, len(r.banks))
	for _, b := range r.banks {
		out = append(out, b.exam)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LoadFromDir loads every YAML bank in dir and validates it
func (r *Registry) LoadFromDir(dir string) error {
	slog.Info("loading question banks", "dir", dir)

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return fmt.Errorf("failed to scan questions dir: %w", err)
		}
		files = append(files, matches...)
	}

	for _, file := range files {
		bank, err := LoadBank(file, nil)
		if err != nil {
			slog.Warn("failed to load question bank", "file", file, "error", err)
			continue
		}
		bank.ValidateQuestionBank()
		r.Add(bank)
	}

	slog.Info("question banks loaded", "count", len(r.ListExams()))
	return nil
}

// LoadBank parses a YAML bank file
func LoadBank(path string, rng *rand.Rand) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var bf bankFile
	if err := yaml.Unmarshal(data, &bf); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if bf.ID == "" {
		base := filepath.Base(path)
		bf.ID = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if bf.Title == "" {
		return nil, fmt.Errorf("bank %s: title is required", bf.ID)
	}
	if len(bf.Questions) == 0 {
		return nil, fmt.Errorf("bank %s: %w", bf.ID, ErrEmptyBank)
	}

	exam := models.ExamDefinition{
		ID:            bf.ID,
		Title:         bf.Title,
		Description:   bf.Description,
		QuestionCount: bf.Exam.QuestionCount,
		Duration:      45 * time.Minute,
		PassMark:      bf.Exam.PassMark,
		Mix:           bf.Exam.Mix,
	}
	if bf.Exam.Duration != "" {
		d, err := time.ParseDuration(bf.Exam.Duration)
		if err != nil {
			return nil, fmt.Errorf("bank %s: invalid duration: %w", bf.ID, err)
		}
		exam.Duration = d
	}
	if exam.QuestionCount <= 0 {
		exam.QuestionCount = 30
	}
	if exam.PassMark <= 0 {
		exam.PassMark = 70
	}
	if len(exam.Mix) == 0 {
		exam.Mix = models.DefaultMix()
	}

	return NewBank(exam, bf.Questions, rng), nil
}

type bankFile struct {
	ID          string            `yaml:"id"`
	Title       string            `yaml:"title"`
	Description string            `yaml:"description"`
	Exam        examFile          `yaml:"exam"`
	Questions   []models.Question `yaml:"questions"`
}

type examFile struct {
	QuestionCount int        `yaml:"question_count"`
	Duration      string     `yaml:"duration"`
	PassMark      int        `yaml:"pass_mark"`
	Mix           models.Mix `yaml:"mix"`
}
