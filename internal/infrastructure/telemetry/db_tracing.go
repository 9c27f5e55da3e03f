package telemetry

import (
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/gorm"
)

// GormPlugin returns the otelgorm plugin, or nil when database tracing is off.
// Query variables are never attached to spans.
func GormPlugin(enabled bool) gorm.Plugin {
	if !enabled {
		return nil
	}
	return otelgorm.NewPlugin(
		otelgorm.WithDBName("postgresql"),
		otelgorm.WithoutQueryVariables(),
	)
}
