package models

// Round is one question-and-answer cycle within a game. Players holds the
// membership count snapshotted when the round started.
type Round struct {
	GameID   string   `json:"game_id"`
	Number   int      `json:"number"`
	Question Question `json:"question"`
	Players  int      `json:"players"`
}

// RoundEvent is a single entry in the delayed transition queue and the
// payload published on the round channel. Started true marks a
// round-started transition, false a round-completed one.
type RoundEvent struct {
	GameID  string `json:"game_id"`
	Round   int    `json:"round"`
	Started bool   `json:"started"`
}
