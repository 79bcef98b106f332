package repository

import (
	"context"

	"arcade_bot/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MatchRepository struct {
	db *pgxpool.Pool
}

func NewMatchRepository(db *pgxpool.Pool) *MatchRepository {
	return &MatchRepository{db: db}
}

// записывает завершенный матч
func (r *MatchRepository) Create(ctx context.Context, m *domain.Match) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO matches (session_id, game_type, player1_id, player2_id, player1_score, player2_score, winner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, finished_at
	`, m.SessionID, m.GameType, m.Player1ID, m.Player2ID, m.Player1Score, m.Player2Score, m.WinnerID).Scan(&m.ID, &m.FinishedAt)
}

// получает матч по id сессии
func (r *MatchRepository) GetBySessionID(ctx context.Context, sessionID string) (*domain.Match, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, session_id, game_type, player1_id, player2_id, player1_score, player2_score, winner_id, finished_at
		FROM matches
		WHERE session_id = $1
	`, sessionID)

	var m domain.Match

	if err := row.Scan(
		&m.ID, &m.SessionID, &m.GameType, &m.Player1ID, &m.Player2ID,
		&m.Player1Score, &m.Player2Score, &m.WinnerID, &m.FinishedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return &m, nil
}

// получает последние матчи пользователя
func (r *MatchRepository) ListByUserID(ctx context.Context, userID int64, limit int) ([]domain.Match, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, session_id, game_type, player1_id, player2_id, player1_score, player2_score, winner_id, finished_at
		FROM matches
		WHERE player1_id = $1 OR player2_id = $1
		ORDER BY finished_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []domain.Match
	for rows.Next() {
		var m domain.Match
		if err := rows.Scan(
			&m.ID, &m.SessionID, &m.GameType, &m.Player1ID, &m.Player2ID,
			&m.Player1Score, &m.Player2Score, &m.WinnerID, &m.FinishedAt,
		); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}

	return matches, rows.Err()
}

// считает победы пользователя по типу игры
func (r *MatchRepository) CountWins(ctx context.Context, userID int64, gameType string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM matches WHERE winner_id = $1 AND game_type = $2
	`, userID, gameType).Scan(&count)
	return count, err
}
