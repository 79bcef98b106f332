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
	snakeWidth  = 15
	snakeHeight = 15

	snakeFoodScore    = 10
	snakeStartFood    = 2
	snakeTurnCap      = 200
	snakeSpawnRetries = 50
)

// клетка поля (строка, столбец)
type snakeCell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

var snakeOpposite = map[Move]Move{
	MoveUp:    MoveDown,
	MoveDown:  MoveUp,
	MoveLeft:  MoveRight,
	MoveRight: MoveLeft,
}

// порядок перебора направлений в автоходе фиксирован для детерминизма
var snakeDirections = []Move{MoveUp, MoveDown, MoveLeft, MoveRight}

func snakeStep(c snakeCell, dir Move) snakeCell {
	switch dir {
	case MoveUp:
		return snakeCell{c.Row - 1, c.Col}
	case MoveDown:
		return snakeCell{c.Row + 1, c.Col}
	case MoveLeft:
		return snakeCell{c.Row, c.Col - 1}
	default:
		return snakeCell{c.Row, c.Col + 1}
	}
}

func snakeInBounds(c snakeCell) bool {
	return c.Row >= 0 && c.Row < snakeHeight && c.Col >= 0 && c.Col < snakeWidth
}

func cellInBody(c snakeCell, body []snakeCell) bool {
	for _, b := range body {
		if b == c {
			return true
		}
	}
	return false
}

type snakePlayer struct {
	body      []snakeCell // голова первая
	direction Move
	score     int
	alive     bool
}

// Snake - две змейки на общем поле 15x15, еда и одновременные тики.
type Snake struct {
	mu        sync.RWMutex
	sessionID string
	players   [2]int64
	p         [2]*snakePlayer
	food      []snakeCell
	turnCount int
	gameOver  bool
	winner    *int64
}

// создает новую партию змейки для двух игроков
func NewSnake(sessionID string, player1ID, player2ID int64) *Snake {
	g := &Snake{
		sessionID: sessionID,
		players:   [2]int64{player1ID, player2ID},
	}
	g.resetLocked()
	return g
}

func (g *Snake) Type() Type        { return TypeSnake }
func (g *Snake) SessionID() string { return g.sessionID }
func (g *Snake) Players() [2]int64 { return g.players }

// возвращает партию в начальное состояние
func (g *Snake) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resetLocked()
}

func (g *Snake) resetLocked() {
	// игрок 1 стартует слева и смотрит вправо, игрок 2 зеркально
	g.p[0] = &snakePlayer{
		body:      []snakeCell{{7, 2}, {7, 1}, {7, 0}},
		direction: MoveRight,
		alive:     true,
	}
	g.p[1] = &snakePlayer{
		body:      []snakeCell{{7, 12}, {7, 13}, {7, 14}},
		direction: MoveLeft,
		alive:     true,
	}
	g.food = nil
	for i := 0; i < snakeStartFood; i++ {
		g.spawnFoodLocked()
	}
	g.turnCount = 0
	g.gameOver = false
	g.winner = nil
	logger.Debug("snake: партия сброшена", "session", g.sessionID)
}

// подбрасывает еду в случайную пустую клетку; при заполненном поле
// молча отступает после ограниченного числа попыток
func (g *Snake) spawnFoodLocked() {
	for attempt := 0; attempt < snakeSpawnRetries; attempt++ {
		c := snakeCell{rand.Intn(snakeHeight), rand.Intn(snakeWidth)}
		if cellInBody(c, g.p[0].body) || cellInBody(c, g.p[1].body) || cellInBody(c, g.food) {
			continue
		}
		g.food = append(g.food, c)
		return
	}
}

func (g *Snake) playerIndex(playerID int64) int {
	for i, id := range g.players {
		if id == playerID {
			return i
		}
	}
	return -1
}

// меняет направление змейки; разворот на месте запрещен
func (g *Snake) ApplyMove(playerID int64, move Move) MoveResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.gameOver {
		return rejected(msgGameOver)
	}
	idx := g.playerIndex(playerID)
	if idx < 0 {
		return rejected(msgInvalidPlayer)
	}
	if _, ok := snakeOpposite[move]; !ok {
		return rejected(msgInvalidMove)
	}
	pl := g.p[idx]
	if !pl.alive {
		return rejected("игрок выбыл")
	}
	if move == snakeOpposite[pl.direction] {
		return rejected("нельзя развернуться назад")
	}
	pl.direction = move
	return accepted(fmt.Sprintf("направление изменено на %s", move))
}

// двигает обе живые змейки на один шаг одновременно: столкновения
// проверяются по телам на начало тика, а не последовательно
func (g *Snake) AdvanceTick() MoveResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.gameOver {
		return rejected(msgGameOver)
	}

	// слепок тел до движения
	var pre [2][]snakeCell
	for i, pl := range g.p {
		pre[i] = append([]snakeCell(nil), pl.body...)
	}

	var messages []string
	var newHeads [2]snakeCell
	var eliminated [2]bool

	for i, pl := range g.p {
		if !pl.alive {
			continue
		}
		head := snakeStep(pre[i][0], pl.direction)
		newHeads[i] = head

		opp := pre[1-i]
		if g.p[1-i].alive && len(opp) > 0 {
			// живой соперник освободит клетку головы на этом же тике
			opp = opp[1:]
		}
		switch {
		case !snakeInBounds(head):
			eliminated[i] = true
			messages = append(messages, fmt.Sprintf("P%d: врезался в стену", i+1))
		case cellInBody(head, pre[i]):
			eliminated[i] = true
			messages = append(messages, fmt.Sprintf("P%d: врезался в себя", i+1))
		case cellInBody(head, opp):
			eliminated[i] = true
			messages = append(messages, fmt.Sprintf("P%d: врезался в соперника", i+1))
		}
	}

	// применяем перемещения уже после оценки обоих ходов
	for i, pl := range g.p {
		if !pl.alive {
			continue
		}
		if eliminated[i] {
			pl.alive = false
			continue
		}
		pl.body = append([]snakeCell{newHeads[i]}, pl.body...)
		if g.eatFoodLocked(newHeads[i]) {
			pl.score += snakeFoodScore
			g.spawnFoodLocked()
			messages = append(messages, fmt.Sprintf("P%d: съел еду (+%d)", i+1, snakeFoodScore))
		} else {
			pl.body = pl.body[:len(pl.body)-1]
		}
	}

	g.turnCount++
	g.checkGameOverLocked()

	msg := "ход сделан"
	if len(messages) > 0 {
		msg = strings.Join(messages, " | ")
	}
	return accepted(msg)
}

// снимает еду с клетки, если она там была
func (g *Snake) eatFoodLocked(c snakeCell) bool {
	for i, f := range g.food {
		if f == c {
			g.food = append(g.food[:i], g.food[i+1:]...)
			return true
		}
	}
	return false
}

func (g *Snake) checkGameOverLocked() {
	p1, p2 := g.players[0], g.players[1]
	alive1, alive2 := g.p[0].alive, g.p[1].alive

	switch {
	case !alive1 && !alive2:
		g.gameOver = true
		g.winner = winnerByScore(p1, p2, g.p[0].score, g.p[1].score)
	case !alive1:
		g.gameOver = true
		g.winner = &p2
	case !alive2:
		g.gameOver = true
		g.winner = &p1
	case g.turnCount >= snakeTurnCap:
		g.gameOver = true
		g.winner = winnerByScore(p1, p2, g.p[0].score, g.p[1].score)
	}
	if g.gameOver {
		logger.Info("snake: матч окончен", "session", g.sessionID, "turns", g.turnCount)
	}
}

// детерминированный автоход: держим направление пока впереди безопасно,
// иначе берем первое безопасное направление в фиксированном порядке
func (g *Snake) AutoMove(playerID int64) MoveResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.gameOver {
		return rejected(msgGameOver)
	}
	idx := g.playerIndex(playerID)
	if idx < 0 {
		return rejected(msgInvalidPlayer)
	}
	pl := g.p[idx]
	if !pl.alive {
		return rejected("игрок выбыл")
	}

	if g.snakeSafeLocked(idx, pl.direction) {
		return accepted("держим текущее направление")
	}
	for _, dir := range snakeDirections {
		if dir == snakeOpposite[pl.direction] {
			continue
		}
		if g.snakeSafeLocked(idx, dir) {
			pl.direction = dir
			return accepted(fmt.Sprintf("направление изменено на %s", dir))
		}
	}
	return rejected("безопасного направления нет")
}

func (g *Snake) snakeSafeLocked(idx int, dir Move) bool {
	head := snakeStep(g.p[idx].body[0], dir)
	return snakeInBounds(head) &&
		!cellInBody(head, g.p[idx].body) &&
		!cellInBody(head, g.p[1-idx].body)
}

func (g *Snake) IsOver() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.gameOver
}

func (g *Snake) Winner() *int64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.winner == nil {
		return nil
	}
	w := *g.winner
	return &w
}

func (g *Snake) Scores() (int, int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.p[0].score, g.p[1].score
}

// текстовое представление поля: общее для обоих игроков
func (g *Snake) Display(int64) string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	grid := make([][]byte, snakeHeight)
	for i := range grid {
		grid[i] = []byte(strings.Repeat(" ", snakeWidth))
	}
	for _, f := range g.food {
		grid[f.Row][f.Col] = '*'
	}
	marks := [2][2]byte{{'1', 'a'}, {'2', 'b'}}
	for i, pl := range g.p {
		if !pl.alive {
			continue
		}
		for n, c := range pl.body {
			if n == 0 {
				grid[c.Row][c.Col] = marks[i][0]
			} else {
				grid[c.Row][c.Col] = marks[i][1]
			}
		}
	}

	var b strings.Builder
	b.WriteString("+" + strings.Repeat("-", snakeWidth) + "+\n")
	for _, row := range grid {
		b.WriteByte('|')
		b.Write(row)
		b.WriteString("|\n")
	}
	b.WriteString("+" + strings.Repeat("-", snakeWidth) + "+\n")
	return b.String()
}

type snakePlayerSnapshot struct {
	Body      []snakeCell `json:"body"`
	Direction Move        `json:"direction"`
	Score     int         `json:"score"`
	Alive     bool        `json:"alive"`
}

type snakeSnapshot struct {
	Game      Type                   `json:"game"`
	SessionID string                 `json:"session_id"`
	Player1ID int64                  `json:"player1_id"`
	Player2ID int64                  `json:"player2_id"`
	Players   [2]snakePlayerSnapshot `json:"players"`
	Food      []snakeCell            `json:"food"`
	TurnCount int                    `json:"turn_count"`
	GameOver  bool                   `json:"game_over"`
	Winner    *int64                 `json:"winner,omitempty"`
}

func (g *Snake) Snapshot() ([]byte, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	snap := snakeSnapshot{
		Game:      TypeSnake,
		SessionID: g.sessionID,
		Player1ID: g.players[0],
		Player2ID: g.players[1],
		Food:      append([]snakeCell(nil), g.food...),
		TurnCount: g.turnCount,
		GameOver:  g.gameOver,
		Winner:    g.winner,
	}
	for i, pl := range g.p {
		snap.Players[i] = snakePlayerSnapshot{
			Body:      append([]snakeCell(nil), pl.body...),
			Direction: pl.direction,
			Score:     pl.score,
			Alive:     pl.alive,
		}
	}
	return json.Marshal(snap)
}

func restoreSnake(data []byte) (*Snake, error) {
	var snap snakeSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if snap.SessionID == "" {
		return nil, fmt.Errorf("%w: пустой session_id", ErrMalformedSnapshot)
	}
	if snap.TurnCount < 0 {
		return nil, fmt.Errorf("%w: отрицательный счетчик ходов", ErrMalformedSnapshot)
	}
	if snap.Winner != nil && *snap.Winner != snap.Player1ID && *snap.Winner != snap.Player2ID {
		return nil, fmt.Errorf("%w: победитель не из этой сессии", ErrMalformedSnapshot)
	}
	for _, f := range snap.Food {
		if !snakeInBounds(f) {
			return nil, fmt.Errorf("%w: еда вне поля %v", ErrMalformedSnapshot, f)
		}
	}

	g := &Snake{
		sessionID: snap.SessionID,
		players:   [2]int64{snap.Player1ID, snap.Player2ID},
		food:      append([]snakeCell(nil), snap.Food...),
		turnCount: snap.TurnCount,
		gameOver:  snap.GameOver,
		winner:    snap.Winner,
	}
	for i, ps := range snap.Players {
		if _, ok := snakeOpposite[ps.Direction]; !ok {
			return nil, fmt.Errorf("%w: направление %q", ErrMalformedSnapshot, ps.Direction)
		}
		if len(ps.Body) == 0 {
			return nil, fmt.Errorf("%w: пустое тело змейки", ErrMalformedSnapshot)
		}
		for _, c := range ps.Body {
			if !snakeInBounds(c) {
				return nil, fmt.Errorf("%w: сегмент вне поля %v", ErrMalformedSnapshot, c)
			}
		}
		if ps.Score < 0 {
			return nil, fmt.Errorf("%w: отрицательные очки", ErrMalformedSnapshot)
		}
		g.p[i] = &snakePlayer{
			body:      append([]snakeCell(nil), ps.Body...),
			direction: ps.Direction,
			score:     ps.Score,
			alive:     ps.Alive,
		}
	}
	return g, nil
}
