package errors

import "fmt"

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")

	ErrInvalidInput       = fmt.Errorf("invalid input")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrUserNotFound       = fmt.Errorf("user not found")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrNotAuthenticated   = fmt.Errorf("not authenticated")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrStorage            = fmt.Errorf("storage failure")
	ErrUpstream           = fmt.Errorf("upstream service failure")
	ErrRateLimited        = fmt.Errorf("rate limited")
	ErrUnsupportedMedia   = fmt.Errorf("unsupported media type")
	ErrRejected           = fmt.Errorf("rejected by server")
)
