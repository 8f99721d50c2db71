package runner

import (
	"context"

	"github.com/ZhuoyueLian/checkoutload/internal/checkout"
)

// FailureLogger logs failed workflow instances.
type FailureLogger interface {
	LogFailure(index int, o checkout.Outcome)
}

// loggingExecutor wraps an Executor with failure logging.
type loggingExecutor struct {
	inner  Executor
	logger FailureLogger
}

// WithLogging wraps an Executor to log failures. Declined payments are
// expected business outcomes and are logged like any other failure so the
// log mirrors the error breakdown.
func WithLogging(exec Executor, logger FailureLogger) Executor {
	if logger == nil {
		return exec
	}
	return &loggingExecutor{
		inner:  exec,
		logger: logger,
	}
}

func (l *loggingExecutor) Execute(ctx context.Context, index int) checkout.Outcome {
	out := l.inner.Execute(ctx, index)
	if !out.Success {
		l.logger.LogFailure(index, out)
	}
	return out
}
