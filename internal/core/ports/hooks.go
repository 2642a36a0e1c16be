package ports

import "context"

// Hooks is the closed set of lifecycle callbacks dispatched by the pipeline
// after defined phases. One method per phase; implementations must be cheap
// and must not mutate pipeline state.
type Hooks interface {
	// ScriptsBundled runs after the script bundle artifact is written.
	ScriptsBundled(ctx context.Context, artifact string)
	// StylesCompiled runs after the combined style bundle is written.
	StylesCompiled(ctx context.Context, artifact string)
	// BuildCompleted runs after every stage of a build pass has settled.
	BuildCompleted(ctx context.Context, err error)
}

// NoopHooks is the default Hooks implementation.
type NoopHooks struct{}

// ScriptsBundled implements Hooks.
func (NoopHooks) ScriptsBundled(context.Context, string) {}

// StylesCompiled implements Hooks.
func (NoopHooks) StylesCompiled(context.Context, string) {}

// BuildCompleted implements Hooks.
func (NoopHooks) BuildCompleted(context.Context, error) {}
