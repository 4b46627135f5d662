package core

import "errors"

// Errores sentinel de los adapters. ConsumeChallenge colapsa todos sus casos
// de fallo en ErrNotFound; ver Repository.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid")
)
