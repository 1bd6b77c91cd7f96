// ABOUTME: Adapter routing fx lifecycle events into zap
// ABOUTME: Hook and invoke details at debug, failures at error
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// FxEventLogger implements fxevent.Logger and fx.Printer on top of zap
type FxEventLogger struct {
	logger *zap.Logger
}

// NewFxEventLogger returns an fxevent.Logger writing to logger
func NewFxEventLogger(logger *zap.Logger) fxevent.Logger {
	return &FxEventLogger{logger: logger.Named("fx")}
}

// NewFxPrinter returns an fx.Printer writing to logger
func NewFxPrinter(logger *zap.Logger) fx.Printer {
	return &FxEventLogger{logger: logger.Named("fx")}
}

// LogEvent implements fxevent.Logger
func (l *FxEventLogger) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuting:
		l.logger.Debug("OnStart hook executing", zap.String("caller", e.CallerName), zap.String("callee", e.FunctionName))
	case *fxevent.OnStartExecuted:
		l.hook("OnStart", e.CallerName, e.FunctionName, e.Runtime.String(), e.Err)
	case *fxevent.OnStopExecuting:
		l.logger.Debug("OnStop hook executing", zap.String("caller", e.CallerName), zap.String("callee", e.FunctionName))
	case *fxevent.OnStopExecuted:
		l.hook("OnStop", e.CallerName, e.FunctionName, e.Runtime.String(), e.Err)
	case *fxevent.Supplied:
		l.result("supplied", e.Err, zap.String("type", e.TypeName))
	case *fxevent.Provided:
		l.result("provided", e.Err, zap.String("types", strings.Join(e.OutputTypeNames, ", ")))
	case *fxevent.Invoking:
		l.logger.Debug("invoking", zap.String("function", e.FunctionName))
	case *fxevent.Invoked:
		l.result("invoked", e.Err, zap.String("function", e.FunctionName))
	case *fxevent.Stopping:
		l.logger.Info("stopping", zap.String("signal", strings.ToUpper(e.Signal.String())))
	case *fxevent.Stopped:
		l.lifecycle("stopped", e.Err)
	case *fxevent.RollingBack:
		l.logger.Error("start failed, rolling back", zap.Error(e.StartErr))
	case *fxevent.RolledBack:
		l.lifecycle("rolled back", e.Err)
	case *fxevent.Started:
		l.lifecycle("started", e.Err)
	case *fxevent.LoggerInitialized:
		l.result("logger initialized", e.Err, zap.String("constructor", e.ConstructorName))
	default:
		l.logger.Debug("unhandled fx event", zap.String("event", typeName(event)))
	}
}

// Printf implements fx.Printer
func (l *FxEventLogger) Printf(format string, args ...any) {
	l.logger.Sugar().Infof(format, args...)
}

func (l *FxEventLogger) hook(kind, caller, callee, runtime string, err error) {
	if err != nil {
		l.logger.Error(kind+" hook failed", zap.String("caller", caller), zap.String("callee", callee), zap.Error(err))
		return
	}
	l.logger.Debug(kind+" hook executed", zap.String("caller", caller), zap.String("callee", callee), zap.String("runtime", runtime))
}

func (l *FxEventLogger) result(msg string, err error, field zap.Field) {
	if err != nil {
		l.logger.Error(msg+" with error", field, zap.Error(err))
		return
	}
	l.logger.Debug(msg, field)
}

func (l *FxEventLogger) lifecycle(msg string, err error) {
	if err != nil {
		l.logger.Error(msg+" with error", zap.Error(err))
		return
	}
	l.logger.Info(msg)
}

func typeName(v any) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", v), "*fxevent.")
}
