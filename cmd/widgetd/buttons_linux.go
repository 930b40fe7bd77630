package main

import (
	"os"
	"syscall"

	"github.com/genricoloni/musicwidget/internal/domain"
)

// SIGRTMIN is 34 under glibc, so `pkill -RTMIN+1 widgetd` sends 35.
const sigPrevious = syscall.Signal(35)

var buttonSignals = map[os.Signal]domain.TransportCommand{
	syscall.SIGUSR1: domain.CommandPlayPause,
	syscall.SIGUSR2: domain.CommandNext,
	sigPrevious:     domain.CommandPrevious,
}
