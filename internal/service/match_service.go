package service

import (
	"context"

	"arcade_bot/internal/domain"
	"arcade_bot/internal/logger"
	"arcade_bot/internal/repository"
	"arcade_bot/internal/session"

	"github.com/jackc/pgx/v5/pgxpool"
)

// обрабатывает историю завершенных матчей
type MatchService struct {
	repo *repository.MatchRepository
}

// создает новый сервис истории матчей
func NewMatchService(db *pgxpool.Pool) *MatchService {
	return &MatchService{
		repo: repository.NewMatchRepository(db),
	}
}

// Settle записывает итог завершенного матча. Подключается к реестру
// сессий через OnSettle; ошибка записи не должна ронять разбор сессии,
// поэтому здесь она только логируется.
func (s *MatchService) Settle(ctx context.Context, res session.Settlement) {
	m := &domain.Match{
		SessionID:    res.SessionID,
		GameType:     string(res.GameType),
		Player1ID:    res.Player1ID,
		Player2ID:    res.Player2ID,
		Player1Score: res.Player1Score,
		Player2Score: res.Player2Score,
		WinnerID:     res.WinnerID,
	}

	if err := s.repo.Create(ctx, m); err != nil {
		logger.Error("не удалось записать итог матча", "error", err,
			"session", res.SessionID, "game", res.GameType)
		return
	}

	logger.Info("итог матча записан", "session", res.SessionID,
		"game", res.GameType, "match_id", m.ID)
}

// возвращает историю матчей пользователя
func (s *MatchService) History(ctx context.Context, userID int64, limit int) ([]domain.Match, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByUserID(ctx, userID, limit)
}

// возвращает число побед пользователя в конкретной игре
func (s *MatchService) Wins(ctx context.Context, userID int64, gameType string) (int, error) {
	return s.repo.CountWins(ctx, userID, gameType)
}
