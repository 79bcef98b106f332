package game

import (
	"bytes"
	"encoding/json"
	"testing"
)

func pongSnapshotFixture(t *testing.T) pongSnapshot {
	t.Helper()
	return pongSnapshot{
		Game:      TypePingPong,
		SessionID: "s1",
		Player1ID: 1,
		Player2ID: 2,
		Paddle1Y:  pongHeight/2 - 1,
		Paddle2Y:  pongHeight/2 - 1,
		BallX:     pongWidth / 2,
		BallY:     pongHeight / 2,
		VelX:      1,
		VelY:      0,
	}
}

func pongStateAfter(t *testing.T, eng Engine) pongSnapshot {
	t.Helper()
	blob, err := eng.Snapshot()
	if err != nil {
		t.Fatalf("снапшот не удался: %v", err)
	}
	var snap pongSnapshot
	if err := json.Unmarshal(blob, &snap); err != nil {
		t.Fatalf("не удалось разобрать снапшот: %v", err)
	}
	return snap
}

func TestPingPong_InitialState(t *testing.T) {
	g := NewPingPong("s1", 1, 2)

	snap := pongStateAfter(t, g)
	if snap.BallX != pongWidth/2 || snap.BallY != pongHeight/2 {
		t.Fatalf("мяч должен стартовать в центре, получили (%d,%d)", snap.BallX, snap.BallY)
	}
	if snap.VelX != -1 && snap.VelX != 1 {
		t.Fatalf("горизонтальная скорость должна быть ±1, получили %d", snap.VelX)
	}
	if snap.VelY < -1 || snap.VelY > 1 {
		t.Fatalf("вертикальная скорость вне диапазона: %d", snap.VelY)
	}
	if g.IsOver() {
		t.Fatalf("новая партия не должна быть завершена")
	}
}

func TestPingPong_PaddleClampedAtEdges(t *testing.T) {
	g := NewPingPong("s1", 1, 2)

	for i := 0; i < pongHeight; i++ {
		g.ApplyMove(1, MoveUp)
	}
	if snap := pongStateAfter(t, g); snap.Paddle1Y != 0 {
		t.Fatalf("ракетка должна упереться в верх, получили %d", snap.Paddle1Y)
	}

	for i := 0; i < pongHeight*2; i++ {
		g.ApplyMove(1, MoveDown)
	}
	if snap := pongStateAfter(t, g); snap.Paddle1Y != pongHeight-pongPaddleHeight {
		t.Fatalf("ракетка должна упереться в низ, получили %d", snap.Paddle1Y)
	}
}

func TestPingPong_InvalidMoveRejected(t *testing.T) {
	g := NewPingPong("s1", 1, 2)
	if res := g.ApplyMove(1, MoveLeft); res.Accepted {
		t.Fatalf("ракетка ходит только вверх и вниз")
	}
	if res := g.ApplyMove(999, MoveUp); res.Accepted || res.Message != msgInvalidPlayer {
		t.Fatalf("ход чужого игрока должен отклоняться: %+v", res)
	}
}

func TestPingPong_PaddleBounceReversesBall(t *testing.T) {
	snap := pongSnapshotFixture(t)
	// мяч летит влево прямо в центр левой ракетки
	snap.BallX = 2
	snap.BallY = 5
	snap.VelX = -1
	snap.VelY = 0
	snap.Paddle1Y = 4

	eng := restoreFrom(t, snap)
	res := eng.AdvanceTick()
	if !res.Accepted {
		t.Fatalf("тик должен приниматься: %s", res.Message)
	}

	after := pongStateAfter(t, eng)
	if after.VelX != 1 {
		t.Fatalf("после отскока мяч должен лететь вправо, vel_x=%d", after.VelX)
	}
	if after.VelY < -1 || after.VelY > 1 {
		t.Fatalf("вертикальная скорость после отскока вне диапазона: %d", after.VelY)
	}
	// удар в центр ракетки возвращает мяч ровно
	if after.VelY != 0 {
		t.Fatalf("удар в центр должен давать vel_y=0, получили %d", after.VelY)
	}
	if after.Rally != 1 {
		t.Fatalf("розыгрыш должен удлиниться, получили %d", after.Rally)
	}
	s1, s2 := eng.Scores()
	if s1 != 0 || s2 != 0 {
		t.Fatalf("отскок не должен менять счет: %d:%d", s1, s2)
	}
}

func TestPingPong_BounceEdgeOfPaddleDeflects(t *testing.T) {
	snap := pongSnapshotFixture(t)
	// удар в верхний край ракетки уводит мяч вверх
	snap.BallX = 2
	snap.BallY = 4
	snap.VelX = -1
	snap.VelY = 0
	snap.Paddle1Y = 4

	eng := restoreFrom(t, snap)
	eng.AdvanceTick()

	if after := pongStateAfter(t, eng); after.VelY != -1 {
		t.Fatalf("удар в край должен отклонять мяч, vel_y=%d", after.VelY)
	}
}

func TestPingPong_MissScoresAndResetsBall(t *testing.T) {
	snap := pongSnapshotFixture(t)
	// ракетка внизу, мяч проходит мимо поверху
	snap.BallX = 1
	snap.BallY = 1
	snap.VelX = -1
	snap.VelY = 0
	snap.Paddle1Y = pongHeight - pongPaddleHeight

	eng := restoreFrom(t, snap)
	res := eng.AdvanceTick()
	if !res.Accepted {
		t.Fatalf("тик должен приниматься: %s", res.Message)
	}

	s1, s2 := eng.Scores()
	if s1 != 0 || s2 != 1 {
		t.Fatalf("промах слева должен давать очко второму игроку: %d:%d", s1, s2)
	}
	after := pongStateAfter(t, eng)
	if after.BallX != pongWidth/2 || after.BallY != pongHeight/2 {
		t.Fatalf("после гола мяч должен вернуться в центр, получили (%d,%d)", after.BallX, after.BallY)
	}
	if after.Rally != 0 {
		t.Fatalf("после гола розыгрыш должен обнуляться, получили %d", after.Rally)
	}
}

func TestPingPong_TargetScoreEndsMatch(t *testing.T) {
	snap := pongSnapshotFixture(t)
	// первому игроку остался один гол
	snap.Score1 = pongTargetScore - 1
	snap.BallX = pongWidth - 2
	snap.BallY = 1
	snap.VelX = 1
	snap.VelY = 0
	snap.Paddle2Y = pongHeight - pongPaddleHeight

	eng := restoreFrom(t, snap)
	eng.AdvanceTick()

	if !eng.IsOver() {
		t.Fatalf("набор целевого счета должен завершать матч")
	}
	w := eng.Winner()
	if w == nil || *w != 1 {
		t.Fatalf("должен победить первый игрок, получили %v", w)
	}
}

func TestPingPong_TurnCapEqualScoresNoWinner(t *testing.T) {
	snap := pongSnapshotFixture(t)
	snap.TurnCount = pongTurnCap - 1
	snap.Score1 = 3
	snap.Score2 = 3

	eng := restoreFrom(t, snap)
	eng.AdvanceTick()

	if !eng.IsOver() {
		t.Fatalf("лимит тиков должен завершать матч")
	}
	if w := eng.Winner(); w != nil {
		t.Fatalf("при равном счете победителя нет, получили %d", *w)
	}
}

func TestPingPong_ResetClearsScoreAndCentersBall(t *testing.T) {
	snap := pongSnapshotFixture(t)
	snap.Score1 = 7
	snap.Score2 = 4
	snap.BallX = 3
	snap.TurnCount = 120

	eng := restoreFrom(t, snap)
	eng.Reset()

	s1, s2 := eng.Scores()
	if s1 != 0 || s2 != 0 {
		t.Fatalf("после сброса счет должен обнуляться: %d:%d", s1, s2)
	}
	after := pongStateAfter(t, eng)
	if after.BallX != pongWidth/2 || after.BallY != pongHeight/2 {
		t.Fatalf("после сброса мяч должен быть в центре, получили (%d,%d)", after.BallX, after.BallY)
	}
	if after.TurnCount != 0 {
		t.Fatalf("после сброса счетчик тиков должен обнуляться, получили %d", after.TurnCount)
	}
}

func TestPingPong_MoveAfterGameOverRejected(t *testing.T) {
	snap := pongSnapshotFixture(t)
	snap.GameOver = true
	eng := restoreFrom(t, snap)

	if res := eng.ApplyMove(1, MoveUp); res.Accepted || res.Message != msgGameOver {
		t.Fatalf("ход после конца матча должен отклоняться: %+v", res)
	}
	if res := eng.AdvanceTick(); res.Accepted {
		t.Fatalf("тик после конца матча должен отклоняться")
	}
}

func TestPingPong_AutoMoveTracksBall(t *testing.T) {
	snap := pongSnapshotFixture(t)
	snap.BallY = 0
	snap.Paddle1Y = 4

	eng := restoreFrom(t, snap)
	res := eng.AutoMove(1)
	if !res.Accepted {
		t.Fatalf("автоход должен приниматься: %s", res.Message)
	}
	if after := pongStateAfter(t, eng); after.Paddle1Y != 3 {
		t.Fatalf("ракетка должна шагнуть к мячу, получили %d", after.Paddle1Y)
	}
}

// восстановленная копия повторяет партию тик в тик, пока нет голов
func TestPingPong_RestoreRoundTrip(t *testing.T) {
	snap := pongSnapshotFixture(t)
	snap.BallX = 5
	snap.BallY = 2
	snap.VelX = 1
	snap.VelY = 1

	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("не удалось собрать снапшот: %v", err)
	}
	g1, err := Restore(data)
	if err != nil {
		t.Fatalf("восстановление не удалось: %v", err)
	}
	g2, err := Restore(data)
	if err != nil {
		t.Fatalf("восстановление не удалось: %v", err)
	}

	for i := 0; i < 6; i++ {
		r1 := g1.AdvanceTick()
		r2 := g2.AdvanceTick()
		if r1 != r2 {
			t.Fatalf("расхождение на тике %d: %+v vs %+v", i, r1, r2)
		}
	}

	s1, _ := g1.Snapshot()
	s2, _ := g2.Snapshot()
	if !bytes.Equal(s1, s2) {
		t.Fatalf("состояния разошлись после одинаковых тиков")
	}
}

func TestPingPong_RestoreRejectsMalformed(t *testing.T) {
	bad := pongSnapshotFixture(t)
	bad.VelX = 2
	data, _ := json.Marshal(bad)
	if _, err := Restore(data); err == nil {
		t.Fatalf("ожидалась ошибка на скорости вне диапазона")
	}

	bad = pongSnapshotFixture(t)
	bad.BallX = pongWidth
	data, _ = json.Marshal(bad)
	if _, err := Restore(data); err == nil {
		t.Fatalf("ожидалась ошибка на мяче вне поля")
	}

	bad = pongSnapshotFixture(t)
	bad.Paddle1Y = pongHeight
	data, _ = json.Marshal(bad)
	if _, err := Restore(data); err == nil {
		t.Fatalf("ожидалась ошибка на ракетке вне поля")
	}
}

func TestRestore_UnknownGame(t *testing.T) {
	if _, err := Restore([]byte(`{"game":"chess"}`)); err == nil {
		t.Fatalf("ожидалась ошибка на неизвестной игре")
	}
	if _, err := Restore([]byte(`not json`)); err == nil {
		t.Fatalf("ожидалась ошибка на мусорном снапшоте")
	}
}
