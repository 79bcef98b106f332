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
	tetrisWidth  = 10
	tetrisHeight = 20

	tetrisEmpty = '.'
)

// точка появления новой фигуры (строка, столбец)
var tetrisSpawn = [2]int{0, 4}

// таблицы ориентаций тетромино: для каждого тега список масок 4x4,
// вращение циклично по длине собственной таблицы
var tetrisShapes = map[byte][][]string{
	'I': {
		{"....", "####", "....", "...."},
		{"..#.", "..#.", "..#.", "..#."},
	},
	'O': {
		{"....", ".##.", ".##.", "...."},
	},
	'T': {
		{"....", ".#..", "###.", "...."},
		{"....", ".#..", ".##.", ".#.."},
		{"....", "....", "###.", ".#.."},
		{"....", ".#..", "##..", ".#.."},
	},
	'S': {
		{"....", ".##.", "##..", "...."},
		{"....", ".#..", ".##.", "..#."},
	},
	'Z': {
		{"....", "##..", ".##.", "...."},
		{"....", "..#.", ".##.", ".#.."},
	},
	'J': {
		{"....", ".#..", ".#..", "##.."},
		{"....", "....", "#...", "###."},
		{"....", ".##.", ".#..", ".#.."},
		{"....", "....", "###.", "..#."},
	},
	'L': {
		{"....", ".#..", ".#..", ".##."},
		{"....", "....", "###.", "#..."},
		{"....", "##..", ".#..", ".#.."},
		{"....", "....", "..#.", "###."},
	},
}

var tetrisTags = []byte{'I', 'O', 'T', 'S', 'Z', 'J', 'L'}

// очки за снятые линии, множатся на (уровень+1)
var tetrisLineScores = map[int]int{1: 40, 2: 100, 3: 300, 4: 1200}

type tetrisPlayer struct {
	board   [][]byte // tetrisHeight x tetrisWidth
	score   int
	lines   int
	current byte
	next    byte
	pos     [2]int
	rot     int
}

// уровень выводится из числа снятых линий и нигде не хранится
func (p *tetrisPlayer) level() int {
	return p.lines/10 + 1
}

// Tetris - блочная головоломка на двух независимых досках 10x20.
type Tetris struct {
	mu        sync.RWMutex
	sessionID string
	players   [2]int64
	p         [2]*tetrisPlayer
	gameOver  bool
	winner    *int64
}

// создает новую партию тетриса для двух игроков
func NewTetris(sessionID string, player1ID, player2ID int64) *Tetris {
	g := &Tetris{
		sessionID: sessionID,
		players:   [2]int64{player1ID, player2ID},
	}
	g.resetLocked()
	return g
}

func (g *Tetris) Type() Type        { return TypeTetris }
func (g *Tetris) SessionID() string { return g.sessionID }
func (g *Tetris) Players() [2]int64 { return g.players }

// возвращает партию в начальное состояние
func (g *Tetris) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resetLocked()
}

func (g *Tetris) resetLocked() {
	for i := range g.p {
		g.p[i] = &tetrisPlayer{
			board:   emptyTetrisBoard(),
			current: randomTetrisTag(),
			next:    randomTetrisTag(),
			pos:     tetrisSpawn,
		}
	}
	g.gameOver = false
	g.winner = nil
	logger.Debug("tetris: партия сброшена", "session", g.sessionID)
}

func emptyTetrisBoard() [][]byte {
	board := make([][]byte, tetrisHeight)
	for i := range board {
		row := make([]byte, tetrisWidth)
		for j := range row {
			row[j] = tetrisEmpty
		}
		board[i] = row
	}
	return board
}

// случайный тег фигуры; результат фиксируется в состоянии сразу,
// поэтому попадает в снапшот и не перевыбирается при восстановлении
func randomTetrisTag() byte {
	return tetrisTags[rand.Intn(len(tetrisTags))]
}

func tetrisShape(tag byte, rot int) []string {
	shapes := tetrisShapes[tag]
	return shapes[rot%len(shapes)]
}

// проверяет что каждая занятая клетка фигуры в границах и над пустой клеткой
func tetrisFits(board [][]byte, tag byte, pos [2]int, rot int) bool {
	shape := tetrisShape(tag, rot)
	for i, line := range shape {
		for j := 0; j < len(line); j++ {
			if line[j] != '#' {
				continue
			}
			r := pos[0] + i
			c := pos[1] + j
			if r < 0 || r >= tetrisHeight || c < 0 || c >= tetrisWidth {
				return false
			}
			if board[r][c] != tetrisEmpty {
				return false
			}
		}
	}
	return true
}

func (g *Tetris) playerIndex(playerID int64) int {
	for i, id := range g.players {
		if id == playerID {
			return i
		}
	}
	return -1
}

// применяет ход игрока; отклоненный сдвиг вниз фиксирует фигуру
func (g *Tetris) ApplyMove(playerID int64, move Move) MoveResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.gameOver {
		return rejected(msgGameOver)
	}
	idx := g.playerIndex(playerID)
	if idx < 0 {
		return rejected(msgInvalidPlayer)
	}
	if move == MoveDrop {
		return g.dropLocked(idx)
	}
	return g.stepLocked(idx, move)
}

func (g *Tetris) stepLocked(idx int, move Move) MoveResult {
	pl := g.p[idx]

	newPos := pl.pos
	newRot := pl.rot
	switch move {
	case MoveLeft:
		newPos[1]--
	case MoveRight:
		newPos[1]++
	case MoveDown:
		newPos[0]++
	case MoveRotate:
		newRot = (pl.rot + 1) % len(tetrisShapes[pl.current])
	default:
		return rejected(msgInvalidMove)
	}

	if tetrisFits(pl.board, pl.current, newPos, newRot) {
		pl.pos = newPos
		pl.rot = newRot
		return accepted("фигура сдвинута")
	}

	// неудачный сдвиг вниз превращается в фиксацию фигуры
	if move == MoveDown {
		return g.lockPieceLocked(idx)
	}
	return rejected("ход невозможен")
}

// сбрасывает фигуру вниз до фиксации
func (g *Tetris) dropLocked(idx int) MoveResult {
	pl := g.p[idx]
	for {
		down := [2]int{pl.pos[0] + 1, pl.pos[1]}
		if !tetrisFits(pl.board, pl.current, down, pl.rot) {
			return g.lockPieceLocked(idx)
		}
		pl.pos = down
	}
}

// вписывает фигуру в доску, снимает полные линии, начисляет очки
// и выставляет следующую фигуру; невозможный спавн завершает матч
func (g *Tetris) lockPieceLocked(idx int) MoveResult {
	pl := g.p[idx]

	shape := tetrisShape(pl.current, pl.rot)
	for i, line := range shape {
		for j := 0; j < len(line); j++ {
			if line[j] != '#' {
				continue
			}
			r := pl.pos[0] + i
			c := pl.pos[1] + j
			if r >= 0 && r < tetrisHeight && c >= 0 && c < tetrisWidth {
				pl.board[r][c] = pl.current
			}
		}
	}

	cleared := clearTetrisLines(pl.board)
	gained := 0
	if cleared > 0 {
		gained = tetrisLineScores[cleared] * (pl.level() + 1)
	}
	pl.score += gained
	pl.lines += cleared

	pl.current = pl.next
	pl.next = randomTetrisTag()
	pl.pos = tetrisSpawn
	pl.rot = 0

	if !tetrisFits(pl.board, pl.current, pl.pos, pl.rot) {
		// блок-аут: новая фигура не помещается, побеждает соперник
		opponent := g.players[1-idx]
		g.gameOver = true
		g.winner = &opponent
		logger.Info("tetris: блок-аут", "session", g.sessionID, "winner", opponent)
		return accepted(fmt.Sprintf("фигура зафиксирована, новая не помещается - матч окончен, линий снято: %d", cleared))
	}

	return accepted(fmt.Sprintf("фигура зафиксирована, линий снято: %d, очков начислено: %d", cleared, gained))
}

// снимает полные строки на месте и досыпает пустые сверху
func clearTetrisLines(board [][]byte) int {
	kept := board[:0:0]
	for _, row := range board {
		full := true
		for _, cell := range row {
			if cell == tetrisEmpty {
				full = false
				break
			}
		}
		if !full {
			kept = append(kept, row)
		}
	}
	cleared := tetrisHeight - len(kept)
	if cleared == 0 {
		return 0
	}

	rows := make([][]byte, 0, tetrisHeight)
	for i := 0; i < cleared; i++ {
		row := make([]byte, tetrisWidth)
		for j := range row {
			row[j] = tetrisEmpty
		}
		rows = append(rows, row)
	}
	rows = append(rows, kept...)
	copy(board, rows)
	return cleared
}

// в тетрисе нет автономного движения, тик всегда отклоняется
func (g *Tetris) AdvanceTick() MoveResult {
	return rejected("в тетрисе нет автономного движения")
}

// детерминированный автоход: просто сдвиг вниз
func (g *Tetris) AutoMove(playerID int64) MoveResult {
	return g.ApplyMove(playerID, MoveDown)
}

func (g *Tetris) IsOver() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.gameOver
}

func (g *Tetris) Winner() *int64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.winner == nil {
		return nil
	}
	w := *g.winner
	return &w
}

func (g *Tetris) Scores() (int, int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.p[0].score, g.p[1].score
}

// текстовое представление доски игрока с наложенной текущей фигурой;
// рисует по копии, живая доска наружу не отдается
func (g *Tetris) Display(playerID int64) string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	idx := g.playerIndex(playerID)
	if idx < 0 {
		return msgInvalidPlayer
	}
	pl := g.p[idx]

	view := make([][]byte, tetrisHeight)
	for i, row := range pl.board {
		view[i] = append([]byte(nil), row...)
	}

	if !g.gameOver {
		shape := tetrisShape(pl.current, pl.rot)
		for i, line := range shape {
			for j := 0; j < len(line); j++ {
				if line[j] != '#' {
					continue
				}
				r := pl.pos[0] + i
				c := pl.pos[1] + j
				if r >= 0 && r < tetrisHeight && c >= 0 && c < tetrisWidth && view[r][c] == tetrisEmpty {
					view[r][c] = '*'
				}
			}
		}
	}

	var b strings.Builder
	b.WriteString("+" + strings.Repeat("-", tetrisWidth) + "+\n")
	for _, row := range view {
		b.WriteByte('|')
		for _, cell := range row {
			switch cell {
			case tetrisEmpty:
				b.WriteByte(' ')
			case '*':
				b.WriteByte('*')
			default:
				b.WriteByte('#')
			}
		}
		b.WriteString("|\n")
	}
	b.WriteString("+" + strings.Repeat("-", tetrisWidth) + "+\n")
	return b.String()
}

type tetrisPlayerSnapshot struct {
	Board    []string `json:"board"`
	Score    int      `json:"score"`
	Lines    int      `json:"lines_cleared"`
	Current  string   `json:"current_piece"`
	Next     string   `json:"next_piece"`
	Pos      [2]int   `json:"piece_pos"`
	Rotation int      `json:"piece_rotation"`
}

type tetrisSnapshot struct {
	Game      Type                    `json:"game"`
	SessionID string                  `json:"session_id"`
	Player1ID int64                   `json:"player1_id"`
	Player2ID int64                   `json:"player2_id"`
	Players   [2]tetrisPlayerSnapshot `json:"players"`
	GameOver  bool                    `json:"game_over"`
	Winner    *int64                  `json:"winner,omitempty"`
}

func (g *Tetris) Snapshot() ([]byte, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	snap := tetrisSnapshot{
		Game:      TypeTetris,
		SessionID: g.sessionID,
		Player1ID: g.players[0],
		Player2ID: g.players[1],
		GameOver:  g.gameOver,
		Winner:    g.winner,
	}
	for i, pl := range g.p {
		rows := make([]string, tetrisHeight)
		for r, row := range pl.board {
			rows[r] = string(row)
		}
		snap.Players[i] = tetrisPlayerSnapshot{
			Board:    rows,
			Score:    pl.score,
			Lines:    pl.lines,
			Current:  string(pl.current),
			Next:     string(pl.next),
			Pos:      pl.pos,
			Rotation: pl.rot,
		}
	}
	return json.Marshal(snap)
}

func restoreTetris(data []byte) (*Tetris, error) {
	var snap tetrisSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if snap.SessionID == "" {
		return nil, fmt.Errorf("%w: пустой session_id", ErrMalformedSnapshot)
	}
	if snap.Winner != nil && *snap.Winner != snap.Player1ID && *snap.Winner != snap.Player2ID {
		return nil, fmt.Errorf("%w: победитель не из этой сессии", ErrMalformedSnapshot)
	}

	g := &Tetris{
		sessionID: snap.SessionID,
		players:   [2]int64{snap.Player1ID, snap.Player2ID},
		gameOver:  snap.GameOver,
		winner:    snap.Winner,
	}
	for i, ps := range snap.Players {
		pl, err := restoreTetrisPlayer(ps)
		if err != nil {
			return nil, err
		}
		// в живой партии фигура обязана корректно стоять на доске
		if !snap.GameOver && !tetrisFits(pl.board, pl.current, pl.pos, pl.rot) {
			return nil, fmt.Errorf("%w: фигура вне доски или поверх занятых клеток", ErrMalformedSnapshot)
		}
		g.p[i] = pl
	}
	return g, nil
}

func restoreTetrisPlayer(ps tetrisPlayerSnapshot) (*tetrisPlayer, error) {
	if len(ps.Board) != tetrisHeight {
		return nil, fmt.Errorf("%w: высота доски %d", ErrMalformedSnapshot, len(ps.Board))
	}
	board := make([][]byte, tetrisHeight)
	for r, rowStr := range ps.Board {
		if len(rowStr) != tetrisWidth {
			return nil, fmt.Errorf("%w: ширина строки %d", ErrMalformedSnapshot, len(rowStr))
		}
		row := []byte(rowStr)
		for _, cell := range row {
			if cell != tetrisEmpty && tetrisShapes[cell] == nil {
				return nil, fmt.Errorf("%w: неизвестная клетка %q", ErrMalformedSnapshot, cell)
			}
		}
		board[r] = row
	}

	current, err := parseTetrisTag(ps.Current)
	if err != nil {
		return nil, err
	}
	next, err := parseTetrisTag(ps.Next)
	if err != nil {
		return nil, err
	}
	if ps.Rotation < 0 || ps.Rotation >= len(tetrisShapes[current]) {
		return nil, fmt.Errorf("%w: поворот %d", ErrMalformedSnapshot, ps.Rotation)
	}
	if ps.Score < 0 || ps.Lines < 0 {
		return nil, fmt.Errorf("%w: отрицательные очки", ErrMalformedSnapshot)
	}

	return &tetrisPlayer{
		board:   board,
		score:   ps.Score,
		lines:   ps.Lines,
		current: current,
		next:    next,
		pos:     ps.Pos,
		rot:     ps.Rotation,
	}, nil
}

func parseTetrisTag(s string) (byte, error) {
	if len(s) != 1 || tetrisShapes[s[0]] == nil {
		return 0, fmt.Errorf("%w: неизвестная фигура %q", ErrMalformedSnapshot, s)
	}
	return s[0], nil
}
