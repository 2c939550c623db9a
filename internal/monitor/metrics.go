package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flyby_monitor_messages_total",
		Help: "Mensagens recebidas do feed do indexer.",
	})
	parseFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flyby_monitor_parse_failures_total",
		Help: "Mensagens do feed descartadas por erro de parse.",
	})
	pulsesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flyby_monitor_pulses_total",
		Help: "Detecções do evento alvo do contrato.",
	})
)
