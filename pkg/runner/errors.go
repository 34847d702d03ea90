package runner

import (
	"errors"
	"strings"

	"github.com/entrhq/questpilot/pkg/bridge/client"
	"github.com/entrhq/questpilot/pkg/classifier"
	"github.com/entrhq/questpilot/pkg/types"
)

// responseError is a step failure caused by the classified reply itself
// (error, empty or timeout type) rather than by the transport.
type responseError struct {
	parsed classifier.ParsedResponse
}

func (e *responseError) Error() string {
	if e.parsed.Message != "" {
		return e.parsed.Message
	}
	return string(e.parsed.Type)
}

// classifyError maps a step error to the fixed error-kind taxonomy the
// presentation surface renders from.
func classifyError(err error) types.ErrorKind {
	var respErr *responseError
	if errors.As(err, &respErr) {
		if respErr.parsed.Type == classifier.TypeTimeout {
			return types.KindStepTimeout
		}
		return types.KindUnknownError
	}

	switch {
	case errors.Is(err, client.ErrFrameNotFound):
		return types.KindTargetNotFound
	case errors.Is(err, client.ErrChannelClosed):
		return types.KindTargetNotResponding
	case errors.Is(err, client.ErrTimeout):
		return types.KindStepTimeout
	}

	// The bridge reports element-level failures as messages, not sentinel
	// values; match on the operation named in the text.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "input"):
		return types.KindInputFieldNotFound
	case strings.Contains(msg, "send"):
		return types.KindSendFailed
	case strings.Contains(msg, "button"):
		return types.KindButtonNotFound
	case strings.Contains(msg, "selector"), strings.Contains(msg, "element"):
		return types.KindElementNotFound
	case strings.Contains(msg, "panic"), strings.Contains(msg, "exception"):
		return types.KindException
	}
	return types.KindUnknownError
}
