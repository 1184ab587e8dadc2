package history

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/runtimeeditor/history/internal/history"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
