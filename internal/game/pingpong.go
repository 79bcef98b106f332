package game

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"arcade_bot/internal/logger"
)

const (
	pongWidth  = 20
	pongHeight = 10

	pongPaddleHeight = 3
	pongTargetScore  = 11
	pongTurnCap      = 500
)

// PingPong - общий мяч и две ракетки на поле 20x10.
type PingPong struct {
	mu        sync.RWMutex
	sessionID string
	players   [2]int64
	scores    [2]int
	paddleY   [2]int
	ballX     int
	ballY     int
	velX      int
	velY      int
	rally     int
	turnCount int
	gameOver  bool
	winner    *int64
}

// создает новую партию пинг-понга для двух игроков
func NewPingPong(sessionID string, player1ID, player2ID int64) *PingPong {
	g := &PingPong{
		sessionID: sessionID,
		players:   [2]int64{player1ID, player2ID},
	}
	g.resetLocked()
	return g
}

func (g *PingPong) Type() Type        { return TypePingPong }
func (g *PingPong) SessionID() string { return g.sessionID }
func (g *PingPong) Players() [2]int64 { return g.players }

// возвращает партию в начальное состояние
func (g *PingPong) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resetLocked()
}

func (g *PingPong) resetLocked() {
	g.scores = [2]int{}
	g.paddleY = [2]int{pongHeight/2 - 1, pongHeight/2 - 1}
	g.resetBallLocked()
	g.turnCount = 0
	g.gameOver = false
	g.winner = nil
	logger.Debug("pingpong: партия сброшена", "session", g.sessionID)
}

// ставит мяч в центр со свежим случайным направлением; направление
// разыгрывается немедленно и целиком попадает в снапшот
func (g *PingPong) resetBallLocked() {
	g.ballX = pongWidth / 2
	g.ballY = pongHeight / 2
	g.velX = []int{-1, 1}[rand.Intn(2)]
	g.velY = rand.Intn(3) - 1
	g.rally = 0
}

func (g *PingPong) playerIndex(playerID int64) int {
	for i, id := range g.players {
		if id == playerID {
			return i
		}
	}
	return -1
}

// сдвигает ракетку игрока на одну клетку с упором в края поля
func (g *PingPong) ApplyMove(playerID int64, move Move) MoveResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.gameOver {
		return rejected(msgGameOver)
	}
	idx := g.playerIndex(playerID)
	if idx < 0 {
		return rejected(msgInvalidPlayer)
	}

	switch move {
	case MoveUp:
		if g.paddleY[idx] > 0 {
			g.paddleY[idx]--
		}
	case MoveDown:
		if g.paddleY[idx] < pongHeight-pongPaddleHeight {
			g.paddleY[idx]++
		}
	default:
		return rejected(msgInvalidMove)
	}
	return accepted(fmt.Sprintf("ракетка сдвинута %s", move))
}

// продвигает мяч на его скорость: отскок от стен, отскок от ракеток,
// гол с возвратом мяча в центр
func (g *PingPong) AdvanceTick() MoveResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.gameOver {
		return rejected(msgGameOver)
	}

	newX := g.ballX + g.velX
	newY := g.ballY + g.velY

	// отскок от горизонтальных стен
	if newY <= 0 {
		newY = 0
		g.velY = abs(g.velY)
	} else if newY >= pongHeight-1 {
		newY = pongHeight - 1
		g.velY = -abs(g.velY)
	}

	var msg string
	switch {
	case newX <= 1 && g.velX < 0 && g.hitsPaddle(0, newY):
		// отскок от левой ракетки: вертикальная скорость зависит от
		// смещения мяча относительно центра ракетки
		g.velX = 1
		g.velY = newY - (g.paddleY[0] + pongPaddleHeight/2)
		g.ballX = 2
		g.ballY = newY
		g.rally++
		msg = fmt.Sprintf("отскок от ракетки, розыгрыш: %d", g.rally)

	case newX >= pongWidth-2 && g.velX > 0 && g.hitsPaddle(1, newY):
		g.velX = -1
		g.velY = newY - (g.paddleY[1] + pongPaddleHeight/2)
		g.ballX = pongWidth - 3
		g.ballY = newY
		g.rally++
		msg = fmt.Sprintf("отскок от ракетки, розыгрыш: %d", g.rally)

	case newX <= 0:
		g.scores[1]++
		msg = fmt.Sprintf("гол! счет %d:%d", g.scores[0], g.scores[1])
		g.resetBallLocked()

	case newX >= pongWidth-1:
		g.scores[0]++
		msg = fmt.Sprintf("гол! счет %d:%d", g.scores[0], g.scores[1])
		g.resetBallLocked()

	default:
		g.ballX = newX
		g.ballY = newY
		msg = "мяч сдвинулся"
	}

	g.turnCount++
	g.checkGameOverLocked()
	return accepted(msg)
}

func (g *PingPong) hitsPaddle(idx, row int) bool {
	return row >= g.paddleY[idx] && row < g.paddleY[idx]+pongPaddleHeight
}

func (g *PingPong) checkGameOverLocked() {
	p1, p2 := g.players[0], g.players[1]
	switch {
	case g.scores[0] >= pongTargetScore:
		g.gameOver = true
		g.winner = &p1
	case g.scores[1] >= pongTargetScore:
		g.gameOver = true
		g.winner = &p2
	case g.turnCount >= pongTurnCap:
		g.gameOver = true
		g.winner = winnerByScore(p1, p2, g.scores[0], g.scores[1])
	}
	if g.gameOver {
		logger.Info("pingpong: матч окончен", "session", g.sessionID,
			"score1", g.scores[0], "score2", g.scores[1])
	}
}

// детерминированный автоход: ведем ракетку к строке мяча
func (g *PingPong) AutoMove(playerID int64) MoveResult {
	g.mu.RLock()
	if g.gameOver {
		g.mu.RUnlock()
		return rejected(msgGameOver)
	}
	idx := g.playerIndex(playerID)
	if idx < 0 {
		g.mu.RUnlock()
		return rejected(msgInvalidPlayer)
	}
	center := g.paddleY[idx] + pongPaddleHeight/2
	ballY := g.ballY
	g.mu.RUnlock()

	switch {
	case ballY < center:
		return g.ApplyMove(playerID, MoveUp)
	case ballY > center:
		return g.ApplyMove(playerID, MoveDown)
	default:
		return accepted("ракетка уже на линии мяча")
	}
}

func (g *PingPong) IsOver() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.gameOver
}

func (g *PingPong) Winner() *int64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.winner == nil {
		return nil
	}
	w := *g.winner
	return &w
}

func (g *PingPong) Scores() (int, int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.scores[0], g.scores[1]
}

// текстовое представление поля: общее для обоих игроков
func (g *PingPong) Display(int64) string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	field := make([][]byte, pongHeight)
	for i := range field {
		field[i] = []byte(strings.Repeat(" ", pongWidth))
	}
	for y := 1; y < pongHeight-1; y++ {
		field[y][pongWidth/2] = ':'
	}
	for i := 0; i < pongPaddleHeight; i++ {
		if y := g.paddleY[0] + i; y >= 0 && y < pongHeight {
			field[y][1] = '#'
		}
		if y := g.paddleY[1] + i; y >= 0 && y < pongHeight {
			field[y][pongWidth-2] = '#'
		}
	}
	if g.ballY >= 0 && g.ballY < pongHeight && g.ballX >= 0 && g.ballX < pongWidth {
		field[g.ballY][g.ballX] = 'o'
	}

	var b strings.Builder
	b.WriteString("+" + strings.Repeat("-", pongWidth) + "+\n")
	for _, row := range field {
		b.WriteByte('|')
		b.Write(row)
		b.WriteString("|\n")
	}
	b.WriteString("+" + strings.Repeat("-", pongWidth) + "+\n")
	return b.String()
}

type pongSnapshot struct {
	Game      Type   `json:"game"`
	SessionID string `json:"session_id"`
	Player1ID int64  `json:"player1_id"`
	Player2ID int64  `json:"player2_id"`
	Score1    int    `json:"player1_score"`
	Score2    int    `json:"player2_score"`
	Paddle1Y  int    `json:"player1_paddle_y"`
	Paddle2Y  int    `json:"player2_paddle_y"`
	BallX     int    `json:"ball_x"`
	BallY     int    `json:"ball_y"`
	VelX      int    `json:"ball_vel_x"`
	VelY      int    `json:"ball_vel_y"`
	Rally     int    `json:"rally_count"`
	TurnCount int    `json:"turn_count"`
	GameOver  bool   `json:"game_over"`
	Winner    *int64 `json:"winner,omitempty"`
}

func (g *PingPong) Snapshot() ([]byte, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return json.Marshal(pongSnapshot{
		Game:      TypePingPong,
		SessionID: g.sessionID,
		Player1ID: g.players[0],
		Player2ID: g.players[1],
		Score1:    g.scores[0],
		Score2:    g.scores[1],
		Paddle1Y:  g.paddleY[0],
		Paddle2Y:  g.paddleY[1],
		BallX:     g.ballX,
		BallY:     g.ballY,
		VelX:      g.velX,
		VelY:      g.velY,
		Rally:     g.rally,
		TurnCount: g.turnCount,
		GameOver:  g.gameOver,
		Winner:    g.winner,
	})
}

func restorePingPong(data []byte) (*PingPong, error) {
	var snap pongSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if snap.SessionID == "" {
		return nil, fmt.Errorf("%w: пустой session_id", ErrMalformedSnapshot)
	}
	if snap.BallX < 0 || snap.BallX >= pongWidth || snap.BallY < 0 || snap.BallY >= pongHeight {
		return nil, fmt.Errorf("%w: мяч вне поля (%d,%d)", ErrMalformedSnapshot, snap.BallX, snap.BallY)
	}
	if snap.VelX != -1 && snap.VelX != 1 {
		return nil, fmt.Errorf("%w: горизонтальная скорость %d", ErrMalformedSnapshot, snap.VelX)
	}
	if snap.VelY < -1 || snap.VelY > 1 {
		return nil, fmt.Errorf("%w: вертикальная скорость %d", ErrMalformedSnapshot, snap.VelY)
	}
	if snap.Paddle1Y < 0 || snap.Paddle1Y > pongHeight-pongPaddleHeight ||
		snap.Paddle2Y < 0 || snap.Paddle2Y > pongHeight-pongPaddleHeight {
		return nil, fmt.Errorf("%w: ракетка вне поля", ErrMalformedSnapshot)
	}
	if snap.Score1 < 0 || snap.Score2 < 0 || snap.Rally < 0 || snap.TurnCount < 0 {
		return nil, fmt.Errorf("%w: отрицательные счетчики", ErrMalformedSnapshot)
	}
	if snap.Winner != nil && *snap.Winner != snap.Player1ID && *snap.Winner != snap.Player2ID {
		return nil, fmt.Errorf("%w: победитель не из этой сессии", ErrMalformedSnapshot)
	}

	return &PingPong{
		sessionID: snap.SessionID,
		players:   [2]int64{snap.Player1ID, snap.Player2ID},
		scores:    [2]int{snap.Score1, snap.Score2},
		paddleY:   [2]int{snap.Paddle1Y, snap.Paddle2Y},
		ballX:     snap.BallX,
		ballY:     snap.BallY,
		velX:      snap.VelX,
		velY:      snap.VelY,
		rally:     snap.Rally,
		turnCount: snap.TurnCount,
		gameOver:  snap.GameOver,
		winner:    snap.Winner,
	}, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
