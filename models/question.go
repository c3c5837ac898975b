package models

import "math/rand"

// Difficulty buckets used by the question data set.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Question is a single trivia question. Questions are immutable once stored;
// a game copies its questions at creation time, so later changes to the pool
// never affect a game in flight.
type Question struct {
	Category         string     `json:"category"`
	Difficulty       Difficulty `json:"difficulty"`
	Text             string     `json:"question"`
	CorrectAnswer    string     `json:"correct_answer"`
	IncorrectAnswers []string   `json:"incorrect_answers"`
}

// ShuffledAnswers returns the correct and incorrect answers mixed together in
// random order, suitable for presenting to players.
func (q Question) ShuffledAnswers() []string {
	answers := make([]string, 0, len(q.IncorrectAnswers)+1)
	answers = append(answers, q.IncorrectAnswers...)
	answers = append(answers, q.CorrectAnswer)
	rand.Shuffle(len(answers), func(i, j int) {
		answers[i], answers[j] = answers[j], answers[i]
	})
	return answers
}
