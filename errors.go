package checkout

import (
	"errors"
	"fmt"
	"strings"
)

// Checkout preflight error taxonomy. Every wallet or provider failure is
// classified into one of these sentinels at the operation boundary before it
// reaches a caller; raw provider errors never cross into user-facing text
// except as wrapped diagnostic detail.

var (
	// ErrProviderUnavailable indicates no wallet provider is injected.
	ErrProviderUnavailable = errors.New("no wallet provider available")

	// ErrUserRejected indicates the user declined a wallet prompt.
	ErrUserRejected = errors.New("request rejected by user")

	// ErrPendingRequest indicates a permission request is already
	// outstanding in the wallet; retry only after a cooldown.
	ErrPendingRequest = errors.New("wallet request already pending")

	// ErrChainNotRecognized indicates the wallet has never seen the
	// requested chain and it must be added before switching.
	ErrChainNotRecognized = errors.New("chain not recognized by wallet")

	// ErrNetworkCongestion indicates a transaction-layer failure whose
	// message suggests timeout, congestion or nonce trouble; retry is
	// expected to succeed.
	ErrNetworkCongestion = errors.New("network congestion")

	// ErrStateMismatch indicates the connector library and the live
	// provider disagree about the connection; resolved internally by a
	// forced re-probe and never surfaced to the user.
	ErrStateMismatch = errors.New("connector and provider state mismatch")

	// ErrConfiguration indicates a deployment defect such as zero enabled
	// chains. Fails loudly; never silently defaulted around.
	ErrConfiguration = errors.New("invalid checkout configuration")

	// ErrUnknownNetwork indicates a backend network name with no registry
	// match. Treated as a configuration defect, not a user error.
	ErrUnknownNetwork = errors.New("unknown network")

	// ErrUnknownChain indicates a chain ID with no registry match.
	ErrUnknownChain = errors.New("unknown chain id")

	// ErrUnknownToken indicates a token symbol the chain does not carry.
	ErrUnknownToken = errors.New("unknown token")

	// ErrWrongNetwork indicates the wallet is on a different chain than
	// the checkout requires; dependent operations are suppressed, not
	// retried.
	ErrWrongNetwork = errors.New("wallet on wrong network")

	// ErrNoExpectedNetwork indicates no target network has been chosen.
	ErrNoExpectedNetwork = errors.New("no expected network set")

	// ErrSwitchFailed indicates a chain switch failed for a reason other
	// than user rejection or an unrecognized chain. Retryable.
	ErrSwitchFailed = errors.New("network switch failed")

	// ErrConnectInFlight indicates a connect attempt is already running;
	// the re-entrant trigger is ignored, not queued.
	ErrConnectInFlight = errors.New("connect already in flight")

	// ErrNotConnected indicates an operation that requires a connected
	// wallet was invoked without one.
	ErrNotConnected = errors.New("wallet not connected")

	// ErrInsufficientBalance indicates the wallet balance does not cover
	// the required amount.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidAmount indicates an amount string that is not a valid
	// decimal for the token's declared precision.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidTransition indicates a pay-state transition the state
	// machine does not permit.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrNoPaymentOption indicates readiness was evaluated before a
	// payment option was chosen.
	ErrNoPaymentOption = errors.New("no payment option selected")
)

// EIP-1193 / EIP-1474 provider error codes classified by the taxonomy.
const (
	// CodeUserRejected is returned when the user declines a wallet prompt.
	CodeUserRejected = 4001

	// CodeChainNotAdded is returned by wallet_switchEthereumChain when the
	// wallet has never seen the target chain.
	CodeChainNotAdded = 4902

	// CodeRequestPending is returned when a permission request is already
	// outstanding.
	CodeRequestPending = -32002
)

// ErrorCoder is implemented by provider errors that carry a numeric JSON-RPC
// error code.
type ErrorCoder interface {
	error
	ErrorCode() int
}

// ClassifyProviderError maps a raw provider error onto the taxonomy. Known
// codes map to their sentinels; anything else is wrapped so the provider's
// message survives as diagnostic detail without becoming the primary error.
func ClassifyProviderError(err error) error {
	if err == nil {
		return nil
	}
	var coded ErrorCoder
	if errors.As(err, &coded) {
		switch coded.ErrorCode() {
		case CodeUserRejected:
			return ErrUserRejected
		case CodeChainNotAdded:
			return ErrChainNotRecognized
		case CodeRequestPending:
			return ErrPendingRequest
		}
	}
	return fmt.Errorf("provider error: %w", err)
}

// congestionMarkers are message fragments that indicate a transaction-layer
// failure likely to succeed on retry.
var congestionMarkers = []string{
	"timeout",
	"timed out",
	"congest",
	"nonce",
	"underpriced",
	"replacement transaction",
}

// ClassifyTransactionError maps a transaction-layer failure onto the taxonomy.
// User rejections win over everything; congestion is detected heuristically
// from the error text and routed as an informational, retryable condition.
func ClassifyTransactionError(err error) error {
	if err == nil {
		return nil
	}
	classified := ClassifyProviderError(err)
	if errors.Is(classified, ErrUserRejected) || errors.Is(classified, ErrPendingRequest) {
		return classified
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range congestionMarkers {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %s", ErrNetworkCongestion, err.Error())
		}
	}
	return classified
}

// IsRecoverable reports whether an error represents a user-recoverable
// condition rather than a system failure: the UI returns to its pre-attempt
// state instead of showing a hard error.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrUserRejected) ||
		errors.Is(err, ErrPendingRequest) ||
		errors.Is(err, ErrNetworkCongestion)
}
