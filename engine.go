package valbind

import (
	"context"

	internal "github.com/valbind/valbind/internal"

	"github.com/tetratelabs/wazero"
)

// Engine is the boundary engine: type registration, value conversion and
// dispatch of exposed native functions.
type Engine interface {
	internal.Engine
	NewFunctionExporterForModule(guest wazero.CompiledModule) FunctionExporter
}

// IEngineConfig configures engine creation.
type IEngineConfig = internal.IEngineConfig

// NewConfig returns the default engine configuration.
func NewConfig() IEngineConfig {
	return internal.NewConfig()
}

// EngineKey adds the engine to a context:
// ctx = context.WithValue(ctx, valbind.EngineKey{}, engine)
type EngineKey = internal.EngineKey

// CreateEngine returns a new boundary engine. Attach it to the context
// before running conversions.
func CreateEngine(config IEngineConfig) Engine {
	return &wazeroEngine{
		config: config,
		Engine: internal.CreateEngine(config),
	}
}

// GetEngineFromContext returns the engine attached to the context.
func GetEngineFromContext(ctx context.Context) (internal.Engine, error) {
	return internal.GetEngineFromContext(ctx)
}

// MustGetEngineFromContext returns the engine attached to the context and
// panics when there is none.
func MustGetEngineFromContext(ctx context.Context) internal.Engine {
	return internal.MustGetEngineFromContext(ctx)
}
