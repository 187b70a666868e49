package core

import "time"

// Hook is an optional observer invoked around planning and execution.
type Hook interface {
	BeforeConvert(op string, src, dst *Format)
	AfterConvert(op string, src, dst *Format, d time.Duration, n int, err error)
}

// MetricsCollector receives performance observations from planning and
// execution.
type MetricsCollector interface {
	RecordConversionTime(op string, d interface{ Seconds() float64 })
	RecordPixels(n int64)
	RecordError(op string, category string)
}

// Logger is a minimal structured logging interface.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}
