package seglog

import (
	"github.com/prometheus/client_golang/prometheus"

	intseglog "github.com/seglog/seglog/internal/seglog"
)

// RegisterMetrics registers all metrics collectors with the given prometheus
// registerer.
func RegisterMetrics(registerer prometheus.Registerer) error {
	if err := intseglog.RegisterMetrics(registerer); err != nil {
		return err
	}
	return nil
}
