package goSession

import (
	"errors"

	"github.com/MrEthical07/goSession/api"
	"github.com/MrEthical07/goSession/gateway"
	"github.com/MrEthical07/goSession/refresh"
)

var (
	// ErrUnauthenticated is returned by requests that could not be authorized,
	// including those whose renewal failed. The session has ended when it is returned.
	ErrUnauthenticated = gateway.ErrUnauthenticated
	// ErrRenewalFailed wraps the cause of a failed credential renewal.
	ErrRenewalFailed = refresh.ErrRenewalFailed
	// ErrInvalidCredentials is returned by SignIn for a wrong email or password.
	ErrInvalidCredentials = api.ErrInvalidCredentials
	// ErrAccountExists is returned by SignUp when the email is already registered.
	ErrAccountExists = api.ErrAccountExists
	// ErrValidation is returned for input rejected locally or by the backend.
	ErrValidation = api.ErrValidation
	// ErrNotFound is returned for tasks that do not exist or belong to someone else.
	ErrNotFound = api.ErrNotFound
	// ErrRateLimited is returned when the backend throttles repeated attempts.
	ErrRateLimited = api.ErrRateLimited

	// ErrBuilderUsed is returned by a second call to Build.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrInvalidConfig wraps every Config validation failure.
	ErrInvalidConfig = errors.New("invalid config")
)
