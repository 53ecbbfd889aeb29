package questions

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/elec-mate/elecmate-engine/internal/models"
)

func TestLoadBundledBanks(t *testing.T) {
	dir := filepath.Join("..", "..", "questions")
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Skip("questions directory not found, skipping")
	}

	reg := NewRegistry()
	require.NoError(t, reg.LoadFromDir(dir))

	exams := reg.ListExams()
	require.NotEmpty(t, exams)

	for _, exam := range exams {
		bank, err := reg.Bank(exam.ID)
		require.NoError(t, err)
		require.Empty(t, bank.ValidateQuestionBank(), "bank %s", exam.ID)

		drawn, err := bank.GetRandomQuestions(exam.QuestionCount, exam.Mix)
		require.NoError(t, err)
		require.Len(t, drawn, min(exam.QuestionCount, exam.BankSize))
	}
}

func TestLoadBankDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quick-quiz.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
title: Quick Quiz
questions:
  - {id: 1, question: "Unit of current?", options: [Volt, Ampere], correct_answer: 1, explanation: Amps, difficulty: basic}
`), 0o644))

	bank, err := LoadBank(path, seeded())
	require.NoError(t, err)

	exam := bank.Exam()
	require.Equal(t, "quick-quiz", exam.ID)
	require.Equal(t, 30, exam.QuestionCount)
	require.Equal(t, 45*time.Minute, exam.Duration)
	require.Equal(t, 2700, exam.DurationSeconds())
	require.Equal(t, 70, exam.PassMark)
	require.Equal(t, models.DefaultMix(), exam.Mix)
	require.Equal(t, 1, exam.BankSize)
}

func TestLoadBankRejectsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("title: Empty\n"), 0o644))

	_, err := LoadBank(path, nil)
	require.True(t, errors.Is(err, ErrEmptyBank))
}

func TestValidateQuestionBankReportsProblems(t *testing.T) {
	bank := NewBank(models.ExamDefinition{ID: "broken"}, []models.Question{
		{ID: 1, Options: []string{"a", "b"}, CorrectAnswer: 0, Explanation: "ok", Difficulty: models.QuestionBasic},
		{ID: 1, Options: []string{"a"}, CorrectAnswer: 3},
	}, seeded())

	problems := bank.ValidateQuestionBank()
	require.ElementsMatch(t, []Problem{
		{QuestionID: 1, Message: "duplicate question id"},
		{QuestionID: 1, Message: "fewer than two options"},
		{QuestionID: 1, Message: "correct answer out of range"},
		{QuestionID: 1, Message: "missing explanation"},
		{QuestionID: 1, Message: "missing difficulty"},
	}, problems)
}

func TestRegistryMissingBank(t *testing.T) {
	_, err := NewRegistry().Bank("nope")
	require.True(t, errors.Is(err, ErrBankNotFound))
}

func TestGetRandomQuestionsEmptyBank(t *testing.T) {
	_, err := NewBank(models.ExamDefinition{ID: "x"}, nil, nil).GetRandomQuestions(5, nil)
	require.True(t, errors.Is(err, ErrEmptyBank))
}
