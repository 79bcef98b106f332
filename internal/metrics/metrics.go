package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// активные игровые сессии по типам игр
	ActiveSessions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "arcade_active_sessions",
		Help: "Количество живых игровых сессий",
	}, []string{"game"})

	// ходы игроков, с разбивкой принят/отклонен
	MovesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arcade_moves_total",
		Help: "Обработанные ходы игроков",
	}, []string{"game", "accepted"})

	// тики автономного движения
	TicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arcade_ticks_total",
		Help: "Обработанные тики движения",
	}, []string{"game"})

	// завершенные матчи: win или draw
	GamesFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arcade_games_finished_total",
		Help: "Завершенные матчи по исходам",
	}, []string{"game", "outcome"})

	// ошибки сохранения снапшотов
	SnapshotErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arcade_snapshot_errors_total",
		Help: "Ошибки сохранения снапшотов сессий",
	})
)
