package database

import (
	"context"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/trezcool/kusoma/core"
)

const codeAuthenticationFailed = 18

// Classify tells why a connect attempt failed.
func Classify(err error) core.ConnFailure {
	if err == nil {
		return core.ConnUnknown
	}
	msg := strings.ToLower(err.Error())

	var cmdErr mongo.CommandError
	switch {
	case errors.Is(err, syscall.ECONNREFUSED), strings.Contains(msg, "connection refused"):
		return core.ConnRefused
	case errors.As(err, &cmdErr) && cmdErr.Code == codeAuthenticationFailed,
		strings.Contains(msg, "authentication failed"), strings.Contains(msg, "auth error"):
		return core.ConnAuthFailed
	case errors.Is(err, context.DeadlineExceeded), mongo.IsTimeout(err),
		strings.Contains(msg, "timed out"), strings.Contains(msg, "timeout"):
		return core.ConnTimeout
	default:
		return core.ConnUnknown
	}
}
