package domain

import (
	"errors"
	"fmt"
)

// Query failure kinds. Match them with errors.Is on a *QueryError.
var (
	// ErrUnreachable is returned when the player cannot be reached on the bus.
	ErrUnreachable = errors.New("player unreachable")

	// ErrTimeout is returned when the player did not answer in time.
	ErrTimeout = errors.New("player query timed out")

	// ErrMalformedResponse is returned when the player answered with data we cannot parse.
	ErrMalformedResponse = errors.New("malformed player response")
)

// Command failure kinds. Match them with errors.Is on a *CommandError.
var (
	// ErrNoActivePlayer is returned when a command is issued while no player is bound.
	ErrNoActivePlayer = errors.New("no active player")

	// ErrTransportFailure is returned when the bus call carrying a command failed.
	ErrTransportFailure = errors.New("transport command failed")

	// ErrInvalidCommand is returned for commands outside the known set.
	ErrInvalidCommand = errors.New("invalid transport command")
)

var (
	// ErrStaleResult is returned by a refresh whose result was discarded
	// because the owner changed or a newer refresh was applied first.
	ErrStaleResult = errors.New("stale metadata result discarded")

	// ErrFeedLost is returned when the bus notification feed stops.
	// The tracker can no longer keep correct state after this.
	ErrFeedLost = errors.New("bus notification feed lost")
)

// QueryError reports a failed metadata query against a player.
type QueryError struct {
	Player PlayerIdentity
	// Kind is one of ErrUnreachable, ErrTimeout, ErrMalformedResponse
	Kind error
	Err  error
}

// NewQueryError builds a QueryError of the given kind.
func NewQueryError(player PlayerIdentity, kind, err error) *QueryError {
	return &QueryError{Player: player, Kind: kind, Err: err}
}

func (e *QueryError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("query %s: %v", e.Player, e.Kind)
	}
	return fmt.Sprintf("query %s: %v: %v", e.Player, e.Kind, e.Err)
}

func (e *QueryError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// CommandError reports a failed transport command.
type CommandError struct {
	Command TransportCommand
	// Kind is one of ErrNoActivePlayer, ErrTransportFailure, ErrInvalidCommand
	Kind error
	Err  error
}

// NewCommandError builds a CommandError of the given kind.
func NewCommandError(cmd TransportCommand, kind, err error) *CommandError {
	return &CommandError{Command: cmd, Kind: kind, Err: err}
}

func (e *CommandError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("command %s: %v", e.Command, e.Kind)
	}
	return fmt.Sprintf("command %s: %v: %v", e.Command, e.Kind, e.Err)
}

func (e *CommandError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
