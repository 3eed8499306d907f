package strand

import "github.com/prometheus/client_golang/prometheus"

// Metrics instruments contexts and carrier pools. Pass one instance to
// [WithMetrics] and [WithPoolMetrics]; a nil *Metrics disables
// instrumentation at zero cost.
type Metrics struct {
	tasksTotal       prometheus.Counter
	threadsTotal     prometheus.Counter
	suspensionsTotal prometheus.Counter
	resumptionsTotal prometheus.Counter
	carriersActive   prometheus.Gauge
	carriersIdle     prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		tasksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "strand_tasks_total",
			Help: "Total number of submitted tasks executed.",
		}),
		threadsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "strand_threads_total",
			Help: "Total number of threads started.",
		}),
		suspensionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "strand_suspensions_total",
			Help: "Total number of thread suspensions.",
		}),
		resumptionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "strand_resumptions_total",
			Help: "Total number of thread resumptions scheduled.",
		}),
		carriersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "strand_carriers_active",
			Help: "Carriers currently alive in the pool.",
		}),
		carriersIdle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "strand_carriers_idle",
			Help: "Carriers currently idle in the pool.",
		}),
	}
	reg.MustRegister(
		m.tasksTotal,
		m.threadsTotal,
		m.suspensionsTotal,
		m.resumptionsTotal,
		m.carriersActive,
		m.carriersIdle,
	)
	return m
}

func (m *Metrics) taskRan() {
	if m != nil {
		m.tasksTotal.Inc()
	}
}

func (m *Metrics) threadStarted() {
	if m != nil {
		m.threadsTotal.Inc()
	}
}

func (m *Metrics) threadSuspended() {
	if m != nil {
		m.suspensionsTotal.Inc()
	}
}

func (m *Metrics) threadResumed() {
	if m != nil {
		m.resumptionsTotal.Inc()
	}
}

func (m *Metrics) carrierStarted() {
	if m != nil {
		m.carriersActive.Inc()
	}
}

func (m *Metrics) carrierStopped() {
	if m != nil {
		m.carriersActive.Dec()
	}
}

func (m *Metrics) carrierIdle(delta float64) {
	if m != nil {
		m.carriersIdle.Add(delta)
	}
}
