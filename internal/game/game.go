package game

import (
	"encoding/json"
	"errors"
	"fmt"
)

type Type string

const (
	TypeTetris   Type = "tetris"
	TypeSnake    Type = "snake"
	TypePingPong Type = "pingpong"
)

// вид хода игрока; набор допустимых значений зависит от игры
type Move string

const (
	MoveLeft   Move = "left"
	MoveRight  Move = "right"
	MoveUp     Move = "up"
	MoveDown   Move = "down"
	MoveRotate Move = "rotate"
	MoveDrop   Move = "drop"
)

var (
	ErrUnknownGameType   = errors.New("неизвестный тип игры")
	ErrMalformedSnapshot = errors.New("некорректный снапшот")
)

// результат применения хода или тика
type MoveResult struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message"`
}

func rejected(msg string) MoveResult {
	return MoveResult{Accepted: false, Message: msg}
}

func accepted(msg string) MoveResult {
	return MoveResult{Accepted: true, Message: msg}
}

// Engine - один матч одной игры, полностью в памяти.
// Все переходы синхронные, без I/O и без внутренних таймеров:
// тик двигает мяч/змей и вызывается внешним владельцем сессии.
type Engine interface {
	Type() Type
	SessionID() string
	Players() [2]int64

	// применяет дискретный ход игрока
	ApplyMove(playerID int64, move Move) MoveResult
	// продвигает автономное движение на один шаг
	// (для игр без автономного движения всегда отклоняется)
	AdvanceTick() MoveResult
	// минимальный детерминированный автоход за игрока
	AutoMove(playerID int64) MoveResult

	IsOver() bool
	Winner() *int64
	Scores() (int, int)

	// сериализует состояние в непрозрачный blob; вместе с Restore
	// обязан давать бит-идентичное продолжение партии
	Snapshot() ([]byte, error)

	// текстовое представление поля; читает копию, не живую ссылку
	Display(playerID int64) string

	// возвращает матч в начальное состояние
	Reset()
}

// создает движок игры указанного типа с фиксированными размерами поля
func New(t Type, sessionID string, player1ID, player2ID int64) (Engine, error) {
	switch t {
	case TypeTetris:
		return NewTetris(sessionID, player1ID, player2ID), nil
	case TypeSnake:
		return NewSnake(sessionID, player1ID, player2ID), nil
	case TypePingPong:
		return NewPingPong(sessionID, player1ID, player2ID), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownGameType, t)
	}
}

// восстанавливает движок из снапшота; тип игры берется из самого blob
func Restore(data []byte) (Engine, error) {
	var head struct {
		Game Type `json:"game"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}

	switch head.Game {
	case TypeTetris:
		return restoreTetris(data)
	case TypeSnake:
		return restoreSnake(data)
	case TypePingPong:
		return restorePingPong(data)
	default:
		return nil, fmt.Errorf("%w: game=%q", ErrUnknownGameType, head.Game)
	}
}

const (
	msgGameOver      = "игра завершена"
	msgInvalidPlayer = "неверный игрок"
	msgInvalidMove   = "недопустимый ход"
)

// общий для всех игр выбор победителя по очкам (nil при равенстве)
func winnerByScore(p1, p2 int64, score1, score2 int) *int64 {
	if score1 > score2 {
		return &p1
	}
	if score2 > score1 {
		return &p2
	}
	return nil
}
