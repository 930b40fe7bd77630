//go:build !linux

package main

import (
	"os"

	"github.com/genricoloni/musicwidget/internal/domain"
)

var buttonSignals = map[os.Signal]domain.TransportCommand{}
