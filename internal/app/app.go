// ABOUTME: Application lifecycle for the karaoke engine
// ABOUTME: Builds the fx app from the component modules and runs it until shutdown
package app

import (
	"context"

	"go.uber.org/fx"
)

// Options are the command line choices layered over the config file
type Options struct {
	ConfigPath string
	Track      string
	LogFile    string
	Record     bool
	NoTUI      bool
	Loop       bool
}

// Application represents the main application with its lifecycle.
type Application struct {
	app *fx.App
}

// New creates the application from the default modules.
func New(opts Options) *Application {
	return build(opts, Modules()...)
}

func build(opts Options, modules ...fx.Option) *Application {
	options := append([]fx.Option{fx.Supply(opts)}, modules...)
	options = append(options, fx.Invoke(registerLifecycleHooks))

	return &Application{app: fx.New(options...)}
}

// Err reports a dependency graph failure detected by New
func (a *Application) Err() error {
	return a.app.Err()
}

// Start runs every OnStart hook
func (a *Application) Start(ctx context.Context) error {
	return a.app.Start(ctx)
}

// Done is signalled on SIGINT, SIGTERM or an internal shutdown request
func (a *Application) Done() <-chan fx.ShutdownSignal {
	return a.app.Wait()
}

// Stop gracefully stops the application.
func (a *Application) Stop(ctx context.Context) error {
	return a.app.Stop(ctx)
}

func registerLifecycleHooks(lc fx.Lifecycle, e *Engine) {
	lc.Append(fx.Hook{
		OnStart: e.Start,
		OnStop:  e.Stop,
	})
}
