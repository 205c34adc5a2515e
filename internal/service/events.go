package service

import (
	"github.com/sirupsen/logrus"

	"github.com/persistorai/txlink/internal/domain"
	"github.com/persistorai/txlink/internal/models"
)

// LogSink writes search events through logrus. Per-transaction events are
// logged at debug level, contained node failures at warn, hard failures at
// error.
type LogSink struct {
	log *logrus.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(log *logrus.Logger) *LogSink {
	return &LogSink{log: log}
}

// Emit implements domain.EventSink.
func (s *LogSink) Emit(ev models.SearchEvent) {
	entry := s.log.WithFields(logrus.Fields{
		"search_id": ev.SearchID,
		"event":     ev.Type,
	})

	switch ev.Type {
	case models.EventTxExamined:
		if ev.Edge != nil {
			entry.WithFields(logrus.Fields{
				"from":    ev.Edge.From,
				"to":      ev.Edge.To,
				"tx_hash": ev.Edge.TxHash,
			}).Debug("transaction examined")
		}
	case models.EventNodeExpanded:
		entry.WithFields(logrus.Fields{
			"address": ev.Address,
			"depth":   ev.Depth,
			"txs":     ev.Count,
		}).Debug("node expanded")
	case models.EventNodeFailed:
		entry.WithFields(logrus.Fields{
			"address": ev.Address,
			"depth":   ev.Depth,
			"error":   ev.Error,
		}).Warn("node expansion failed, continuing without its edges")
	case models.EventSearchStarted:
		entry.Info("search started")
	case models.EventSearchFound, models.EventSearchNotFound:
		if r := ev.Result; r != nil {
			entry = entry.WithFields(logrus.Fields{
				"status":   r.Status,
				"reason":   r.Reason,
				"hops":     len(r.Path),
				"calls":    r.Stats.Calls,
				"expanded": r.Stats.Expanded,
				"failed":   r.Stats.Failed,
				"duration": r.Stats.Duration,
			})
		}
		entry.Info("search finished")
	case models.EventSearchFailed:
		entry.WithField("error", ev.Error).Error("search failed")
	}
}

// MultiSink fans each event out to every sink in order. Nil sinks are skipped.
type MultiSink []domain.EventSink

// Emit implements domain.EventSink.
func (m MultiSink) Emit(ev models.SearchEvent) {
	for _, s := range m {
		if s != nil {
			s.Emit(ev)
		}
	}
}

type discardSink struct{}

func (discardSink) Emit(models.SearchEvent) {}
