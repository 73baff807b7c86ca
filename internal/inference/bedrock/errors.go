package bedrock

import (
	"errors"

	"github.com/aws/smithy-go"

	"github.com/kaystudios/assistant-gateway/internal/domain"
)

// classify maps a raw Bedrock error onto the closed domain error kinds.
// Throttling and transient unavailability are worth retrying; validation and
// access failures mean the request itself is wrong. Everything else is
// unknown and treated as retryable by the caller.
func classify(err error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return domain.UnknownDependency(domain.DependencyInference, "", err)
	}

	code := apiErr.ErrorCode()
	switch code {
	case "ThrottlingException", "ServiceUnavailableException", "TooManyRequestsException", "ModelNotReadyException":
		return domain.RetryableDependency(domain.DependencyInference, code, err)
	case "ValidationException", "AccessDeniedException", "ResourceNotFoundException":
		return domain.FatalDependency(domain.DependencyInference, code, err)
	default:
		return domain.UnknownDependency(domain.DependencyInference, code, err)
	}
}
