package monitor

import (
	"context"

	"github.com/godbus/dbus/v5"
)

// DBusClient defines the interface for D-Bus operations.
// This abstraction allows us to mock D-Bus interactions in tests.
//
//go:generate mockgen -destination=mocks/dbus_client_mock.go -package=mocks github.com/genricoloni/musicwidget/internal/monitor DBusClient
type DBusClient interface {
	// Close closes the D-Bus connection
	Close() error

	// AddMatchSignal adds a signal match rule
	AddMatchSignal(options ...dbus.MatchOption) error

	// Signal registers a channel to receive D-Bus signals
	Signal(ch chan<- *dbus.Signal)

	// ListNames returns all names on the bus
	ListNames(ctx context.Context) ([]string, error)

	// GetNameOwner returns the unique name that owns the given well-known name
	GetNameOwner(ctx context.Context, name string) (string, error)

	// GetAllProperties calls org.freedesktop.DBus.Properties.GetAll
	// dest: The bus name (e.g., "org.mpris.MediaPlayer2.spotify")
	// path: The object path (e.g., "/org/mpris/MediaPlayer2")
	// iface: The interface (e.g., "org.mpris.MediaPlayer2.Player")
	GetAllProperties(ctx context.Context, dest, path, iface string) (map[string]dbus.Variant, error)

	// CallMethod invokes a method without return values (e.g., "org.mpris.MediaPlayer2.Player.Next")
	CallMethod(ctx context.Context, dest, path, method string) error
}

// StdDBusClient is the real implementation using godbus
type StdDBusClient struct {
	conn *dbus.Conn
}

// NewStdDBusClient creates a real D-Bus client on a private session bus connection.
// A private connection lets Close tear down our signal channels without
// affecting other users of the shared connection.
func NewStdDBusClient() (*StdDBusClient, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, err
	}
	return &StdDBusClient{conn: conn}, nil
}

// Close closes the D-Bus connection
func (c *StdDBusClient) Close() error {
	return c.conn.Close()
}

// AddMatchSignal adds a signal match rule
func (c *StdDBusClient) AddMatchSignal(options ...dbus.MatchOption) error {
	return c.conn.AddMatchSignal(options...)
}

// Signal registers a channel to receive D-Bus signals
func (c *StdDBusClient) Signal(ch chan<- *dbus.Signal) {
	c.conn.Signal(ch)
}

// ListNames returns all names on the bus
func (c *StdDBusClient) ListNames(ctx context.Context) ([]string, error) {
	var names []string
	err := c.conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.ListNames", 0).Store(&names)
	return names, err
}

// GetNameOwner returns the unique name that owns the given well-known name
func (c *StdDBusClient) GetNameOwner(ctx context.Context, name string) (string, error) {
	var owner string
	err := c.conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.GetNameOwner", 0, name).Store(&owner)
	return owner, err
}

// GetAllProperties retrieves every property of an interface on a D-Bus object
func (c *StdDBusClient) GetAllProperties(ctx context.Context, dest, path, iface string) (map[string]dbus.Variant, error) {
	var props map[string]dbus.Variant
	obj := c.conn.Object(dest, dbus.ObjectPath(path))
	err := obj.CallWithContext(ctx, "org.freedesktop.DBus.Properties.GetAll", 0, iface).Store(&props)
	return props, err
}

// CallMethod invokes a method with no arguments on a D-Bus object
func (c *StdDBusClient) CallMethod(ctx context.Context, dest, path, method string) error {
	obj := c.conn.Object(dest, dbus.ObjectPath(path))
	return obj.CallWithContext(ctx, method, 0).Err
}
