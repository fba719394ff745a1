package registry

import "errors"

var (
	ErrClientNotFound = errors.New("client not found")
	ErrSelfPair       = errors.New("client cannot pair with itself")
	ErrAlreadyPaired  = errors.New("client is already paired")
)
