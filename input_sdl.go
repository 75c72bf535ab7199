//go:build !nosdl

package main

import (
	"go.uber.org/zap"

	"github.com/soar/remopad/internal/gamepad/sdlinput"
)

func newSDLReader(log *zap.Logger) (reader, error) {
	return sdlinput.NewReader(log), nil
}
