package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// getMetricValue retrieves the current value of a single gauge or counter.
func getMetricValue(c prometheus.Collector) (float64, error) {
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	close(ch)

	m, ok := <-ch
	if !ok {
		return 0, fmt.Errorf("collector produced no metric")
	}

	pb := &dto.Metric{}
	if err := m.Write(pb); err != nil {
		return 0, err
	}

	switch {
	case pb.Gauge != nil:
		return pb.Gauge.GetValue(), nil
	case pb.Counter != nil:
		return pb.Counter.GetValue(), nil
	}
	return 0, fmt.Errorf("unsupported metric type")
}
