package convert

import "github.com/prometheus/client_golang/prometheus"

// 変換の方向
const (
	DirectionDecode       = "decode"
	DirectionEncode       = "encode"
	DirectionParquetRead  = "parquet_read"
	DirectionParquetWrite = "parquet_write"
)

const (
	resultOK    = "ok"
	resultError = "error"
)

type Metrics struct {
	Conversions *prometheus.CounterVec
	Rows        *prometheus.CounterVec
	Bytes       *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	conversions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "toolpath_conversions_total",
		Help: "Total conversions by direction and result",
	}, []string{"direction", "result"})

	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "toolpath_rows_total",
		Help: "Total table rows produced or consumed",
	}, []string{"direction"})

	bytes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "toolpath_bytes_total",
		Help: "Total encoded bytes read or written",
	}, []string{"direction"})

	reg.MustRegister(conversions, rows, bytes)

	return &Metrics{
		Conversions: conversions,
		Rows:        rows,
		Bytes:       bytes,
	}
}

func (m *Metrics) observe(direction string, rows, bytes int, err error) {
	if err != nil {
		m.Conversions.WithLabelValues(direction, resultError).Inc()
		return
	}
	m.Conversions.WithLabelValues(direction, resultOK).Inc()
	m.Rows.WithLabelValues(direction).Add(float64(rows))
	m.Bytes.WithLabelValues(direction).Add(float64(bytes))
}
