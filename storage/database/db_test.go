package database

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/kusoma/core"
	"github.com/trezcool/kusoma/tests"
)

// countingDialer returns clients that never reach a server; mongo.Connect does no I/O.
type countingDialer struct {
	calls   int64
	delay   time.Duration
	release chan struct{}
	errs    []error // returned by the first calls, in order
}

func (d *countingDialer) dial(ctx context.Context, conf core.DatabaseConfig) (*mongo.Client, error) {
	n := atomic.AddInt64(&d.calls, 1)
	if d.release != nil {
		<-d.release
	}
	time.Sleep(d.delay)
	if int(n) <= len(d.errs) {
		return nil, d.errs[n-1]
	}
	return mongo.Connect(ctx, options.Client().ApplyURI(conf.URI))
}

func (d *countingDialer) count() int64 {
	return atomic.LoadInt64(&d.calls)
}

func noSetup(context.Context, *mongo.Database) error { return nil }

func newTestManager(d *countingDialer, opts ...Option) *Manager {
	conf := testutil.NewConfig().Database
	conf.ConnectTimeout = time.Second
	return NewManager(conf, testutil.NewLogger(), append([]Option{WithDialer(d.dial), WithSetup(noSetup)}, opts...)...)
}

func TestManager_Client_singleDial(t *testing.T) {
	d := &countingDialer{delay: 50 * time.Millisecond}
	m := newTestManager(d)
	defer m.Close(context.Background())

	const callers = 20
	clients := make([]*mongo.Client, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			clients[i], errs[i] = m.Client(context.Background())
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), d.count())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, clients[0], clients[i])
	}

	again, err := m.Client(context.Background())
	require.NoError(t, err)
	assert.Same(t, clients[0], again)
	assert.Equal(t, int64(1), d.count())
}

func TestManager_Client_failureNotCached(t *testing.T) {
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}
	d := &countingDialer{errs: []error{refused}}
	m := newTestManager(d)
	defer m.Close(context.Background())

	_, err := m.Client(context.Background())
	var connErr *core.ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, core.ConnRefused, connErr.Reason)

	client, err := m.Client(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, client)
	assert.Equal(t, int64(2), d.count())
}

func TestManager_Client_callerTimeout(t *testing.T) {
	d := &countingDialer{release: make(chan struct{})}
	m := newTestManager(d)
	defer m.Close(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := m.Client(ctx)
	var connErr *core.ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, core.ConnTimeout, connErr.Reason)

	// the attempt kept going for the others
	close(d.release)
	client, err := m.Client(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, client)
	assert.Equal(t, int64(1), d.count())
}

func TestManager_Client_setupFailure(t *testing.T) {
	d := &countingDialer{}
	failing := func(context.Context, *mongo.Database) error { return errors.New("index build timeout") }
	m := newTestManager(d, WithSetup(failing))

	_, err := m.Client(context.Background())
	var connErr *core.ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, core.ConnTimeout, connErr.Reason)
	assert.Nil(t, m.cached())
}

func TestManager_Close(t *testing.T) {
	d := &countingDialer{}
	m := newTestManager(d)

	assert.NoError(t, m.Close(context.Background()), "closing before connecting")

	_, err := m.Client(context.Background())
	require.NoError(t, err)
	require.NoError(t, m.Close(context.Background()))
	assert.Nil(t, m.cached())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want core.ConnFailure
	}{
		{name: "nil", err: nil, want: core.ConnUnknown},
		{name: "refused syscall", err: fmt.Errorf("server selection: %w", syscall.ECONNREFUSED), want: core.ConnRefused},
		{name: "refused message", err: errors.New("dial tcp 127.0.0.1:27017: connect: connection refused"), want: core.ConnRefused},
		{name: "auth command", err: mongo.CommandError{Code: codeAuthenticationFailed, Name: "AuthenticationFailed"}, want: core.ConnAuthFailed},
		{name: "auth message", err: errors.New("connection() error occurred during connection handshake: auth error: sasl conversation error"), want: core.ConnAuthFailed},
		{name: "deadline", err: errors.Wrap(context.DeadlineExceeded, "ping"), want: core.ConnTimeout},
		{name: "server selection", err: errors.New("server selection error: server selection timeout"), want: core.ConnTimeout},
		{name: "other", err: errors.New("no such host"), want: core.ConnUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
