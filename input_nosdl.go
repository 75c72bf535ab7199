//go:build nosdl

package main

import (
	"errors"

	"go.uber.org/zap"
)

var errNoSDL = errors.New(`built without SDL (-tags nosdl); use --input=joystick`)

func newSDLReader(*zap.Logger) (reader, error) {
	return nil, errNoSDL
}
