package models

// Wire names for the outbound message discriminator.
const (
	TypePlayerJoined     = "player_joined"
	TypeGameStarted      = "game_started"
	TypeRoundStarted     = "round_started"
	TypeRoundCompleted   = "round_completed"
	TypePlayerEliminated = "player_eliminated"
	TypePlayerAdvanced   = "player_advanced"
)

// The outbound protocol is a closed set of message variants, each carrying
// only its relevant fields. The Type field is the JSON discriminator and is
// always set by the constructor.

// PlayerJoined announces a new member of a game's waiting room.
type PlayerJoined struct {
	Type        string `json:"type"`
	Username    string `json:"username"`
	PlayerCount int    `json:"player_count"`
}

func NewPlayerJoined(username string, playerCount int) PlayerJoined {
	return PlayerJoined{Type: TypePlayerJoined, Username: username, PlayerCount: playerCount}
}

// GameStarted announces that a game left the waiting room.
type GameStarted struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

func NewGameStarted(gameID string) GameStarted {
	return GameStarted{Type: TypeGameStarted, ID: gameID}
}

// RoundStarted carries the question for a round, with the correct and
// incorrect answers already shuffled together.
type RoundStarted struct {
	Type     string   `json:"type"`
	Round    int      `json:"round"`
	Question string   `json:"question"`
	Answers  []string `json:"answers"`
}

func NewRoundStarted(round int, question string, answers []string) RoundStarted {
	return RoundStarted{Type: TypeRoundStarted, Round: round, Question: question, Answers: answers}
}

// RoundCompleted reveals the correct answer and the per-answer vote tally.
type RoundCompleted struct {
	Type   string         `json:"type"`
	Round  int            `json:"round"`
	Answer string         `json:"answer"`
	Stats  map[string]int `json:"stats"`
}

func NewRoundCompleted(round int, answer string, stats map[string]int) RoundCompleted {
	return RoundCompleted{Type: TypeRoundCompleted, Round: round, Answer: answer, Stats: stats}
}

// PlayerEliminated is the private reply for an incorrect answer.
type PlayerEliminated struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

func NewPlayerEliminated(username string) PlayerEliminated {
	return PlayerEliminated{Type: TypePlayerEliminated, Username: username}
}

// PlayerAdvanced is the private reply for a correct answer.
type PlayerAdvanced struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

func NewPlayerAdvanced(username string) PlayerAdvanced {
	return PlayerAdvanced{Type: TypePlayerAdvanced, Username: username}
}
