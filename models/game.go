package models

// Game is one play-through instance with a fixed ordered list of rounds.
// CurrentRound is nil until the scheduler starts round 0; once set it only
// ever increases.
type Game struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	TotalRounds  int    `json:"total_rounds"`
	CurrentRound *int   `json:"current_round,omitempty"`
	Players      int    `json:"players"`
}

// Started reports whether the game has begun its first round.
func (g Game) Started() bool {
	return g.CurrentRound != nil
}

// JoinStatus distinguishes the outcomes of adding a player to a game.
type JoinStatus int

const (
	// PlayerAdded means the player joined and the membership count grew.
	PlayerAdded JoinStatus = iota
	// AlreadyJoined means the username was already a member; no change.
	AlreadyJoined
	// GameAlreadyStarted means the game is past its waiting room; the
	// player was not added, but may still observe the game.
	GameAlreadyStarted
)

func (s JoinStatus) String() string {
	switch s {
	case PlayerAdded:
		return "added"
	case AlreadyJoined:
		return "already_joined"
	case GameAlreadyStarted:
		return "game_started"
	default:
		return "unknown"
	}
}
