package ledger

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	transactionResultSuccess = "success"
	transactionResultFailed  = "failed"
	transactionResultError   = "error"
)

var (
	metricsInitOnce sync.Once
	sharedMetrics   *bankMetrics
)

type bankMetrics struct {
	transactions *prometheus.CounterVec
	instructions *prometheus.CounterVec
	commits      *prometheus.CounterVec
}

func newBankMetrics() *bankMetrics {
	metricsInitOnce.Do(func() {
		m := &bankMetrics{
			transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "escrow_ledger_transactions_total",
				Help: "Processed transactions by result.",
			}, []string{"result"}),
			instructions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "escrow_ledger_instructions_total",
				Help: "Program invocations by program name, including cross-program calls.",
			}, []string{"program"}),
			commits: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "escrow_ledger_commit_attempts_total",
				Help: "Account commit attempts by result.",
			}, []string{"result"}),
		}
		prometheus.MustRegister(m.transactions, m.instructions, m.commits)
		sharedMetrics = m
	})
	return sharedMetrics
}

func (m *bankMetrics) onTransaction(result string, invoked []string) {
	m.transactions.WithLabelValues(result).Inc()
	for _, name := range invoked {
		m.instructions.WithLabelValues(name).Inc()
	}
}

func (m *bankMetrics) onCommit(err error) {
	if err != nil {
		m.commits.WithLabelValues(transactionResultError).Inc()
		return
	}
	m.commits.WithLabelValues(transactionResultSuccess).Inc()
}
