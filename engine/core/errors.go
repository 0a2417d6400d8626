package core

import (
	"errors"
)

var (
	ErrShaderNotFound  = errors.New("shader bytecode not found")
	ErrShaderMalformed = errors.New("shader bytecode malformed")
	ErrUnknown         = errors.New("unknown")
)
