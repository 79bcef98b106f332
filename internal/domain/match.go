package domain

import "time"

// итог завершенного матча; ничья кодируется отсутствием победителя
type Match struct {
	ID           int64     `json:"id"`
	SessionID    string    `json:"session_id"`
	GameType     string    `json:"game_type"`
	Player1ID    int64     `json:"player1_id"`
	Player2ID    int64     `json:"player2_id"`
	Player1Score int       `json:"player1_score"`
	Player2Score int       `json:"player2_score"`
	WinnerID     *int64    `json:"winner_id,omitempty"`
	FinishedAt   time.Time `json:"finished_at"`
}
