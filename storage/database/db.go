package database

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"golang.org/x/sync/singleflight"

	"github.com/trezcool/kusoma/core"
)

const connectKey = "connect"

type (
	// DialFunc establishes a verified client to the document store.
	DialFunc func(ctx context.Context, conf core.DatabaseConfig) (*mongo.Client, error)

	// SetupFunc prepares the database once a client is connected.
	SetupFunc func(ctx context.Context, db *mongo.Database) error

	Option func(*Manager)

	// Manager lazily establishes and memoizes the process-wide client.
	// Concurrent callers share a single in-flight attempt; a failed attempt is not
	// cached, so the next call dials again. The client lives until Close at process exit.
	Manager struct {
		conf   core.DatabaseConfig
		logger core.Logger
		dial   DialFunc
		setup  SetupFunc

		mu     sync.RWMutex
		client *mongo.Client
		flight singleflight.Group
	}
)

func WithDialer(dial DialFunc) Option {
	return func(m *Manager) { m.dial = dial }
}

func WithSetup(setup SetupFunc) Option {
	return func(m *Manager) { m.setup = setup }
}

// NewManager does no I/O: the first Client call connects.
func NewManager(conf core.DatabaseConfig, logger core.Logger, opts ...Option) *Manager {
	m := &Manager{
		conf:   conf,
		logger: logger,
		dial:   Dial,
		setup:  EnsureSchema,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Dial connects with the configured options and pings the primary.
func Dial(ctx context.Context, conf core.DatabaseConfig) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(conf.URI).
		SetConnectTimeout(conf.ConnectTimeout).
		SetServerSelectionTimeout(conf.ConnectTimeout).
		SetSocketTimeout(conf.SocketTimeout).
		SetMaxPoolSize(conf.MaxPoolSize).
		SetMinPoolSize(conf.MinPoolSize)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

func (m *Manager) cached() *mongo.Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client
}

// Client returns the shared client, connecting on first use.
// A caller whose ctx ends stops waiting without cancelling the attempt for the others.
func (m *Manager) Client(ctx context.Context) (*mongo.Client, error) {
	if client := m.cached(); client != nil {
		return client, nil
	}

	ch := m.flight.DoChan(connectKey, m.connect)
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*mongo.Client), nil
	case <-ctx.Done():
		return nil, &core.ConnectionError{Reason: core.ConnTimeout, Err: ctx.Err()}
	}
}

// Database returns the configured database handle.
func (m *Manager) Database(ctx context.Context) (*mongo.Database, error) {
	client, err := m.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Database(m.conf.Name), nil
}

// Ping checks that the store still answers.
func (m *Manager) Ping(ctx context.Context) error {
	client, err := m.Client(ctx)
	if err != nil {
		return err
	}
	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		return &core.QueryError{Op: "ping", Err: err}
	}
	return nil
}

// Close disconnects the client, if any.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	client := m.client
	m.client = nil
	m.mu.Unlock()

	if client == nil {
		return nil
	}
	return errors.Wrap(client.Disconnect(ctx), "disconnecting client")
}

func (m *Manager) connect() (interface{}, error) {
	// a previous flight may have completed between cached() and DoChan
	if client := m.cached(); client != nil {
		return client, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.conf.ConnectTimeout)
	defer cancel()

	m.logger.Info("Attempting to connect to the database...")
	client, err := m.dial(ctx, m.conf)
	if err != nil {
		return nil, m.fail(err)
	}
	if m.setup != nil {
		if err = m.setup(ctx, client.Database(m.conf.Name)); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, m.fail(errors.Wrap(err, "initializing database"))
		}
	}

	m.mu.Lock()
	m.client = client
	m.mu.Unlock()

	m.logger.Info("Successfully connected to the database")
	return client, nil
}

func (m *Manager) fail(err error) error {
	reason := Classify(err)
	switch reason {
	case core.ConnRefused:
		m.logger.Error("Database connection refused. Make sure the database is running and reachable.", err)
	case core.ConnAuthFailed:
		m.logger.Error("Database authentication failed. Check the username and password in DATABASE_URL.", err)
	case core.ConnTimeout:
		m.logger.Error("Database connection timed out. Check your network or firewall settings.", err)
	default:
		m.logger.Error("Failed to connect to the database", err)
	}
	return &core.ConnectionError{Reason: reason, Err: err}
}
