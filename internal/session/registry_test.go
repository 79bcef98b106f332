package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"arcade_bot/internal/game"
	"arcade_bot/internal/store"
)

func newTestRegistry(t *testing.T) (*Registry, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	return NewRegistry(st), st
}

// снапшот пинг-понга на пороге лимита тиков: следующий тик завершит матч
func nearFinishedPongSnapshot(t *testing.T, sessionID string) []byte {
	t.Helper()
	blob, err := json.Marshal(map[string]interface{}{
		"game":             game.TypePingPong,
		"session_id":       sessionID,
		"player1_id":       int64(1),
		"player2_id":       int64(2),
		"player1_score":    5,
		"player2_score":    3,
		"player1_paddle_y": 3,
		"player2_paddle_y": 3,
		"ball_x":           10,
		"ball_y":           5,
		"ball_vel_x":       1,
		"ball_vel_y":       0,
		"turn_count":       499,
	})
	if err != nil {
		t.Fatalf("не удалось собрать снапшот: %v", err)
	}
	return blob
}

func TestRegistry_CreateAndLookup(t *testing.T) {
	r, st := newTestRegistry(t)
	ctx := context.Background()

	id, err := r.Create(ctx, game.TypeSnake, 1, 2)
	if err != nil {
		t.Fatalf("создание сессии не удалось: %v", err)
	}
	if id == "" {
		t.Fatalf("ожидался непустой id сессии")
	}
	if r.Count() != 1 {
		t.Fatalf("ожидалась одна живая сессия, получили %d", r.Count())
	}
	if _, ok := r.Lookup(id); !ok {
		t.Fatalf("созданная сессия должна находиться по id")
	}
	// стартовый снапшот сразу уходит в хранилище
	if _, err := st.Load(ctx, id); err != nil {
		t.Fatalf("снапшот новой сессии должен быть сохранен: %v", err)
	}
}

func TestRegistry_CreateUnknownGame(t *testing.T) {
	r, _ := newTestRegistry(t)
	if _, err := r.Create(context.Background(), game.Type("chess"), 1, 2); err == nil {
		t.Fatalf("ожидалась ошибка на неизвестной игре")
	}
}

func TestRegistry_UnknownSessionRejected(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	if _, err := r.ApplyMove(ctx, "no-such", 1, game.MoveUp); !errors.Is(err, ErrUnknownSession) {
		t.Fatalf("ожидалась ErrUnknownSession, получили %v", err)
	}
	if _, err := r.AdvanceTick(ctx, "no-such"); !errors.Is(err, ErrUnknownSession) {
		t.Fatalf("ожидалась ErrUnknownSession, получили %v", err)
	}
	if _, err := r.Display("no-such", 1); !errors.Is(err, ErrUnknownSession) {
		t.Fatalf("ожидалась ErrUnknownSession, получили %v", err)
	}
}

func TestRegistry_MovePersistsSnapshot(t *testing.T) {
	r, st := newTestRegistry(t)
	ctx := context.Background()

	id, err := r.Create(ctx, game.TypePingPong, 1, 2)
	if err != nil {
		t.Fatalf("создание сессии не удалось: %v", err)
	}

	res, err := r.ApplyMove(ctx, id, 1, game.MoveUp)
	if err != nil {
		t.Fatalf("ход не прошел: %v", err)
	}
	if !res.Accepted {
		t.Fatalf("сдвиг ракетки должен приниматься: %s", res.Message)
	}

	blob, err := st.Load(ctx, id)
	if err != nil {
		t.Fatalf("снапшот после хода должен быть сохранен: %v", err)
	}
	if _, err := game.Restore(blob); err != nil {
		t.Fatalf("сохраненный снапшот должен восстанавливаться: %v", err)
	}
}

func TestRegistry_ResumeFromStore(t *testing.T) {
	r, st := newTestRegistry(t)
	ctx := context.Background()

	const id = "resumed-session"
	if err := st.Save(ctx, id, nearFinishedPongSnapshot(t, id)); err != nil {
		t.Fatalf("не удалось подготовить хранилище: %v", err)
	}

	if err := r.Resume(ctx, id); err != nil {
		t.Fatalf("восстановление сессии не удалось: %v", err)
	}
	if _, ok := r.Lookup(id); !ok {
		t.Fatalf("восстановленная сессия должна находиться по id")
	}
}

func TestRegistry_ResumeUnknownSession(t *testing.T) {
	r, _ := newTestRegistry(t)
	if err := r.Resume(context.Background(), "no-such"); err == nil {
		t.Fatalf("ожидалась ошибка на отсутствующем снапшоте")
	}
}

func TestRegistry_TerminalSettlesAndCleansUp(t *testing.T) {
	r, st := newTestRegistry(t)
	ctx := context.Background()

	var settled *Settlement
	r.OnSettle(func(_ context.Context, s Settlement) {
		settled = &s
	})

	const id = "final-session"
	if err := st.Save(ctx, id, nearFinishedPongSnapshot(t, id)); err != nil {
		t.Fatalf("не удалось подготовить хранилище: %v", err)
	}
	if err := r.Resume(ctx, id); err != nil {
		t.Fatalf("восстановление сессии не удалось: %v", err)
	}

	// лимит тиков срабатывает, матч решается по очкам
	if _, err := r.AdvanceTick(ctx, id); err != nil {
		t.Fatalf("тик не прошел: %v", err)
	}

	if settled == nil {
		t.Fatalf("расчет завершенного матча не был вызван")
	}
	if settled.SessionID != id || settled.GameType != game.TypePingPong {
		t.Fatalf("неверные данные расчета: %+v", settled)
	}
	if settled.WinnerID == nil || *settled.WinnerID != 1 {
		t.Fatalf("победителем должен быть первый игрок, получили %v", settled.WinnerID)
	}
	if settled.Player1Score != 5 || settled.Player2Score != 3 {
		t.Fatalf("неверный итоговый счет: %d:%d", settled.Player1Score, settled.Player2Score)
	}

	if r.Count() != 0 {
		t.Fatalf("завершенная сессия должна удаляться из реестра")
	}
	if _, err := st.Load(ctx, id); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("снапшот завершенной сессии должен удаляться, получили %v", err)
	}
}

func TestRegistry_RemoveKeepsStoredSnapshot(t *testing.T) {
	r, st := newTestRegistry(t)
	ctx := context.Background()

	id, err := r.Create(ctx, game.TypeTetris, 1, 2)
	if err != nil {
		t.Fatalf("создание сессии не удалось: %v", err)
	}

	r.Remove(id)
	if r.Count() != 0 {
		t.Fatalf("сессия должна быть удалена из реестра")
	}
	// снапшот остается, сессию можно будет поднять заново
	if _, err := st.Load(ctx, id); err != nil {
		t.Fatalf("снапшот должен пережить удаление сессии: %v", err)
	}
	if err := r.Resume(ctx, id); err != nil {
		t.Fatalf("повторный подъем сессии не удался: %v", err)
	}
}

func TestRegistry_AutoMoveWorks(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	id, err := r.Create(ctx, game.TypeSnake, 1, 2)
	if err != nil {
		t.Fatalf("создание сессии не удалось: %v", err)
	}
	res, err := r.AutoMove(ctx, id, 1)
	if err != nil {
		t.Fatalf("автоход не прошел: %v", err)
	}
	if !res.Accepted {
		t.Fatalf("автоход на старте должен приниматься: %s", res.Message)
	}
}
