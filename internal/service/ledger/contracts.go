package ledger

import "github.com/prometheus/client_golang/prometheus"

type resultCounter interface {
	WithLabelValues(lvs ...string) prometheus.Counter
}
