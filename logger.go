package storyflow

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/narrativeflow/storyflow/internal/expreval"
)

// Logger emits the runtime's structured events: node emissions, failed
// jumps, swallowed evaluation errors and locale fallbacks. It satisfies
// the walker's observer interface; every event carries the execution ID
// minted at Load so interleaved runtimes stay distinguishable in one
// log stream.
type Logger struct {
	zl zerolog.Logger
}

// NewLogger returns a Logger writing human-readable console output to
// w (stdout when nil).
func NewLogger(w io.Writer) *Logger {
	if w == nil {
		w = os.Stdout
	}
	cw := zerolog.ConsoleWriter{Out: w}
	return &Logger{zl: zerolog.New(cw).With().Timestamp().Logger()}
}

// NewStructuredLogger wraps an existing zerolog.Logger, for hosts that
// already run structured JSON logging.
func NewStructuredLogger(zl zerolog.Logger) *Logger {
	return &Logger{zl: zl}
}

// withExecution binds the execution ID onto every subsequent event.
func (l *Logger) withExecution(executionID string) *Logger {
	return &Logger{zl: l.zl.With().Str("execution_id", executionID).Logger()}
}

// NodeEmitted implements the walker observer.
func (l *Logger) NodeEmitted(flowID, nodeID string) {
	l.zl.Debug().Str("flow_id", flowID).Str("node_id", nodeID).Msg("node_emitted")
}

// JumpFailed implements the walker observer.
func (l *Logger) JumpFailed(flowID, nodeID string) {
	l.zl.Warn().Str("flow_id", flowID).Str("node_id", nodeID).Msg("jump_failed")
}

// FlowEnded implements the walker observer.
func (l *Logger) FlowEnded(flowID string) {
	l.zl.Debug().Str("flow_id", flowID).Msg("flow_ended")
}

// EvalError records an authored-expression failure that rendered as an
// error marker instead of aborting the walk.
func (l *Logger) EvalError(err *expreval.EvalError) {
	l.zl.Warn().
		Str("kind", err.Kind.String()).
		Str("expression", err.Expression).
		Msg("eval_error")
}

// LocaleFallback records a render that fell back to the main locale.
func (l *Logger) LocaleFallback(elementID, requested string) {
	l.zl.Debug().Str("element_id", elementID).Str("locale", requested).Msg("locale_fallback")
}

// VersionMismatch records a project authored against a different wire
// API version than this runtime targets. Mismatches are warnings only.
func (l *Logger) VersionMismatch(got, want string) {
	l.zl.Warn().Str("got", got).Str("want", want).Msg("api_version_mismatch")
}
