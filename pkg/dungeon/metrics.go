package dungeon

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics publishes generation counters to Prometheus. A nil *Metrics
// records nothing.
type Metrics struct {
	generations  *prometheus.CounterVec
	placements   prometheus.Counter
	backtracks   prometheus.Counter
	deadEnds     prometheus.Counter
	loopClosures prometheus.Counter
	trials       prometheus.Counter
	duration     prometheus.Histogram
}

// NewMetrics creates the generator metrics and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warren_generations_total",
			Help: "Dungeon generations by outcome.",
		}, []string{"outcome"}),
		placements: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warren_placements_total",
			Help: "Modules committed during search, including ones later backtracked.",
		}),
		backtracks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warren_backtracks_total",
			Help: "Placements undone after a failed subtree.",
		}),
		deadEnds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warren_dead_ends_total",
			Help: "Open connectors with no viable module.",
		}),
		loopClosures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warren_loop_closures_total",
			Help: "Loops closed in successful layouts.",
		}),
		trials: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warren_trials_total",
			Help: "Trial placements attempted.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "warren_generation_seconds",
			Help:    "Wall time spent per generation.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{
		m.generations, m.placements, m.backtracks, m.deadEnds,
		m.loopClosures, m.trials, m.duration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(st Stats, ok bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.generations.WithLabelValues(outcome).Inc()
	m.placements.Add(float64(st.Placements))
	m.backtracks.Add(float64(st.Backtracks))
	m.deadEnds.Add(float64(st.DeadEnds))
	m.trials.Add(float64(st.Trials))
	if ok {
		m.loopClosures.Add(float64(st.LoopClosures))
	}
	m.duration.Observe(elapsed.Seconds())
}
