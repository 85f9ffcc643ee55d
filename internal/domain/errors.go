package domain

import "errors"

var (
	ErrTaskExists        = errors.New("task already exists")
	ErrTaskNotFound      = errors.New("task not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrIdentityDecode    = errors.New("cannot decode task identity")
	ErrUnknownProvider   = errors.New("unknown provider")
	ErrNotAuthorized     = errors.New("capability not granted")
)
