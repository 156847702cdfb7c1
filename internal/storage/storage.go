package storage

import "cpamm/internal/model"

// Journal is an append-only sink for pool events.
type Journal interface {
	Append(records []model.LogRecord) error
}
