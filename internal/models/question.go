package models

import "time"

// QuestionDifficulty is the difficulty band used for weighted exam draws
type QuestionDifficulty string

const (
	QuestionBasic        QuestionDifficulty = "basic"
	QuestionIntermediate QuestionDifficulty = "intermediate"
	QuestionAdvanced     QuestionDifficulty = "advanced"
)

// QuestionDifficulties lists the bands in the order remainders are assigned
var QuestionDifficulties = []QuestionDifficulty{QuestionBasic, QuestionIntermediate, QuestionAdvanced}

// Question is a single multiple-choice item from a question bank
type Question struct {
	ID            int                `json:"id" yaml:"id"`
	Question      string             `json:"question" yaml:"question"`
	Options       []string           `json:"options" yaml:"options"`
	CorrectAnswer int                `json:"correctAnswer" yaml:"correct_answer"`
	Explanation   string             `json:"explanation,omitempty" yaml:"explanation"`
	Section       string             `json:"section,omitempty" yaml:"section"`
	Difficulty    QuestionDifficulty `json:"difficulty,omitempty" yaml:"difficulty"`
	Topic         string             `json:"topic,omitempty" yaml:"topic"`
}

// Mix holds the proportion of each difficulty band in a draw
type Mix map[QuestionDifficulty]float64

// DefaultMix is the 40/45/15 split used by the level 2 mock exams
func DefaultMix() Mix {
	return Mix{
		QuestionBasic:        0.40,
		QuestionIntermediate: 0.45,
		QuestionAdvanced:     0.15,
	}
}

// ExamDefinition describes a mock exam backed by one question bank
type ExamDefinition struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Description   string        `json:"description,omitempty"`
	QuestionCount int           `json:"questionCount"`
	Duration      time.Duration `json:"-"`
	PassMark      int           `json:"passMark"`
	Mix           Mix           `json:"mix"`
	BankSize      int           `json:"bankSize"`
}

// DurationSeconds is exposed to clients instead of the raw duration
func (e ExamDefinition) DurationSeconds() int {
	return int(e.Duration / time.Second)
}
