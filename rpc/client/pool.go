package client

import (
	"context"
	"errors"

	"github.com/ValentinKolb/rKV/rpc/common"
	"github.com/ValentinKolb/rKV/rpc/transport"
	pool "github.com/jolestar/go-commons-pool/v2"
)

// connFactory creates pooled connections with the client transport
type connFactory struct {
	config    common.ClientConfig
	transport transport.IRPCClientTransport
}

// --------------------------------------------------------------------------
// Interface Methods (docu see pool.PooledObjectFactory)
// --------------------------------------------------------------------------

func (f *connFactory) MakeObject(context.Context) (*pool.PooledObject, error) {
	conn, err := f.transport.Connect(f.config)
	if err != nil {
		return nil, err
	}
	Logger.Debugf("opened connection to %s", f.config.Endpoint)
	return pool.NewPooledObject(conn), nil
}

func (f *connFactory) DestroyObject(_ context.Context, object *pool.PooledObject) error {
	conn, ok := object.Object.(transport.IRPCClientConn)
	if !ok {
		return errors.New("type mismatch")
	}
	Logger.Debugf("closing connection to %s", f.config.Endpoint)
	return conn.Close()
}

// ValidateObject drops connections that failed earlier
func (f *connFactory) ValidateObject(_ context.Context, object *pool.PooledObject) bool {
	conn, ok := object.Object.(transport.IRPCClientConn)
	return ok && conn.Healthy()
}

func (f *connFactory) ActivateObject(context.Context, *pool.PooledObject) error {
	return nil
}

func (f *connFactory) PassivateObject(context.Context, *pool.PooledObject) error {
	return nil
}

// newConnPool creates a pool of at most config.PoolSize connections
func newConnPool(ctx context.Context, config common.ClientConfig, t transport.IRPCClientTransport) *pool.ObjectPool {
	poolConfig := pool.NewDefaultPoolConfig()
	poolConfig.MaxTotal = config.PoolSize
	poolConfig.MaxIdle = config.PoolSize
	poolConfig.TestOnBorrow = true
	poolConfig.TestOnReturn = true
	poolConfig.BlockWhenExhausted = true

	return pool.NewObjectPool(ctx, &connFactory{config: config, transport: t}, poolConfig)
}
