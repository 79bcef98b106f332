package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"arcade_bot/internal/game"
	"arcade_bot/internal/logger"
	"arcade_bot/internal/metrics"
	"arcade_bot/internal/store"
)

var ErrUnknownSession = errors.New("сессия не найдена")

// сводка терминального состояния, уходит потребителю для расчетов
type Settlement struct {
	SessionID    string
	GameType     game.Type
	Player1ID    int64
	Player2ID    int64
	Player1Score int
	Player2Score int
	WinnerID     *int64
}

type SettleFunc func(ctx context.Context, s Settlement)

// одна живая сессия: движок плюс его персональная блокировка,
// сериализующая все ходы и тики этого матча
type Session struct {
	ID     string
	mu     sync.Mutex
	engine game.Engine
}

// Registry владеет живыми движками, по одному на сессию. Разные сессии
// полностью независимы; внутри одной сессии операции не перекрываются.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	store    store.SnapshotStore
	settle   SettleFunc
}

func NewRegistry(st store.SnapshotStore) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		store:    st,
	}
}

// OnSettle регистрирует потребителя терминальных результатов
func (r *Registry) OnSettle(fn SettleFunc) {
	r.settle = fn
}

// Create создает движок и регистрирует новую сессию; id назначается здесь
func (r *Registry) Create(ctx context.Context, t game.Type, player1ID, player2ID int64) (string, error) {
	sessionID := uuid.NewString()
	eng, err := game.New(t, sessionID, player1ID, player2ID)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	r.sessions[sessionID] = &Session{ID: sessionID, engine: eng}
	r.mu.Unlock()

	metrics.ActiveSessions.WithLabelValues(string(t)).Inc()
	logger.Info("сессия создана", "session", sessionID, "game", t,
		"player1", player1ID, "player2", player2ID)

	r.persist(ctx, eng)
	return sessionID, nil
}

// Resume поднимает сессию из сохраненного снапшота
func (r *Registry) Resume(ctx context.Context, sessionID string) error {
	blob, err := r.store.Load(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("загрузка снапшота: %w", err)
	}
	eng, err := game.Restore(blob)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.sessions[sessionID] = &Session{ID: sessionID, engine: eng}
	r.mu.Unlock()

	metrics.ActiveSessions.WithLabelValues(string(eng.Type())).Inc()
	logger.Info("сессия восстановлена", "session", sessionID, "game", eng.Type())
	return nil
}

// Lookup возвращает живую сессию по id
func (r *Registry) Lookup(sessionID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionID]
	return s, ok
}

// Remove выбрасывает сессию, не трогая сохраненный снапшот
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	if ok {
		delete(r.sessions, sessionID)
	}
	r.mu.Unlock()

	if ok {
		metrics.ActiveSessions.WithLabelValues(string(s.engine.Type())).Dec()
		logger.Info("сессия удалена", "session", sessionID)
	}
}

// Count возвращает число живых сессий
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// ApplyMove направляет ход игрока в движок его сессии
func (r *Registry) ApplyMove(ctx context.Context, sessionID string, playerID int64, mv game.Move) (game.MoveResult, error) {
	return r.withSession(ctx, sessionID, func(eng game.Engine) game.MoveResult {
		res := eng.ApplyMove(playerID, mv)
		metrics.MovesTotal.WithLabelValues(string(eng.Type()), strconv.FormatBool(res.Accepted)).Inc()
		return res
	})
}

// AdvanceTick продвигает автономное движение сессии на один шаг
func (r *Registry) AdvanceTick(ctx context.Context, sessionID string) (game.MoveResult, error) {
	return r.withSession(ctx, sessionID, func(eng game.Engine) game.MoveResult {
		res := eng.AdvanceTick()
		metrics.TicksTotal.WithLabelValues(string(eng.Type())).Inc()
		return res
	})
}

// AutoMove делает детерминированный автоход за отмолчавшегося игрока
func (r *Registry) AutoMove(ctx context.Context, sessionID string, playerID int64) (game.MoveResult, error) {
	return r.withSession(ctx, sessionID, func(eng game.Engine) game.MoveResult {
		return eng.AutoMove(playerID)
	})
}

// Display отдает текстовое представление поля сессии
func (r *Registry) Display(sessionID string, playerID int64) (string, error) {
	s, ok := r.Lookup(sessionID)
	if !ok {
		return "", ErrUnknownSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Display(playerID), nil
}

// выполняет операцию под блокировкой сессии, после чего либо
// сохраняет снапшот, либо - на терминальном состоянии - рассчитывает
// матч и разбирает сессию
func (r *Registry) withSession(ctx context.Context, sessionID string, op func(game.Engine) game.MoveResult) (game.MoveResult, error) {
	s, ok := r.Lookup(sessionID)
	if !ok {
		return game.MoveResult{}, ErrUnknownSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res := op(s.engine)

	if s.engine.IsOver() {
		r.finalize(ctx, s)
	} else {
		r.persist(ctx, s.engine)
	}
	return res, nil
}

func (r *Registry) persist(ctx context.Context, eng game.Engine) {
	blob, err := eng.Snapshot()
	if err != nil {
		metrics.SnapshotErrors.Inc()
		logger.Error("сериализация снапшота не удалась", "session", eng.SessionID(), "error", err)
		return
	}
	if err := r.store.Save(ctx, eng.SessionID(), blob); err != nil {
		metrics.SnapshotErrors.Inc()
		logger.Error("сохранение снапшота не удалось", "session", eng.SessionID(), "error", err)
	}
}

// терминальная развязка: уведомляем потребителя, чистим хранилище,
// выбрасываем сессию из реестра
func (r *Registry) finalize(ctx context.Context, s *Session) {
	eng := s.engine
	players := eng.Players()
	score1, score2 := eng.Scores()
	winner := eng.Winner()

	outcome := "draw"
	if winner != nil {
		outcome = "win"
	}
	metrics.GamesFinished.WithLabelValues(string(eng.Type()), outcome).Inc()

	if r.settle != nil {
		r.settle(ctx, Settlement{
			SessionID:    s.ID,
			GameType:     eng.Type(),
			Player1ID:    players[0],
			Player2ID:    players[1],
			Player1Score: score1,
			Player2Score: score2,
			WinnerID:     winner,
		})
	}

	if err := r.store.Delete(ctx, s.ID); err != nil {
		logger.Warn("не удалось удалить снапшот завершенной сессии", "session", s.ID, "error", err)
	}
	r.Remove(s.ID)

	logger.Info("матч завершен", "session", s.ID, "game", eng.Type(),
		"score1", score1, "score2", score2, "outcome", outcome)
}
