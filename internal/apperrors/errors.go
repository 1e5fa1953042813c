package apperrors

import "errors"

// Domain entity errors represent missing entities in the system.
// These errors indicate that a requested resource does not exist.
var (
	// ErrUserNotFound indicates that no ledger exists for the given chat identity.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvestorNotFound indicates that an investor with the given name does not exist.
	ErrInvestorNotFound = errors.New("investor not found")

	// ErrSecurityNotFound indicates that a security with the given identifier does not exist.
	ErrSecurityNotFound = errors.New("security not found")

	// ErrHoldingNotFound indicates that no open position exists for the investor/security pair.
	ErrHoldingNotFound = errors.New("holding not found")

	// ErrSettingNotFound indicates that a setting key has not been stored.
	ErrSettingNotFound = errors.New("setting not found")
)

// Business rule errors represent validation failures or constraint
// violations. They are expected, recoverable outcomes the caller handles;
// they never indicate a fault in the system.
var (
	// ErrUnresolvedSecurity indicates that a user-typed token matched no known security.
	ErrUnresolvedSecurity = errors.New("security token could not be resolved")

	// ErrInvalidAmount indicates a non-positive quantity or price.
	ErrInvalidAmount = errors.New("quantity and price must be positive")

	// ErrInsufficientHoldings indicates that a sell exceeds the current position.
	// The position is left unchanged.
	ErrInsufficientHoldings = errors.New("insufficient holdings for sale")

	// ErrInvalidDateRange indicates that a date range has its start after its end.
	ErrInvalidDateRange = errors.New("invalid date range")
)

// Degraded-mode errors. These downgrade a single report line or lookup
// rather than aborting the whole operation.
var (
	// ErrPriceUnavailable indicates that no current or historical price
	// could be obtained for a security.
	ErrPriceUnavailable = errors.New("price unavailable")
)

// Transport errors.
var (
	// ErrInvalidSignature indicates a webhook request whose signature did
	// not match the channel secret.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// Operation failure errors represent system-level failures when
// retrieving or processing data.
var (
	ErrFailedToRetrieveHoldings  = errors.New("failed to retrieve holdings")
	ErrFailedToRetrieveTrades    = errors.New("failed to retrieve trades")
	ErrFailedToRetrieveInvestors = errors.New("failed to retrieve investors")
	ErrFailedToRetrieveRealized  = errors.New("failed to retrieve realized gain/loss")
	ErrFailedToBuildReport       = errors.New("failed to build position report")
	ErrFailedToBuildRanking      = errors.New("failed to build ranking")
	ErrFailedToCommitTrade       = errors.New("failed to commit trade")
	ErrFailedToSearchSecurities  = errors.New("failed to search securities")
)
