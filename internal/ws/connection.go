package ws

import (
	"context"
	"errors"
	"sync"

	"codesync/internal/protocol"
)

type wsConnection interface {
	Close() error
	WriteJSON(v interface{}) error
	ReadJSON(v interface{}) error
}

type gateway interface {
	Attach(connID string) chan protocol.Message
	Detach(connID string)
	Dispatch(connID string, ev protocol.Envelope)
}

// Connection pumps one WebSocket: inbound events go to the gateway,
// outbound events come from the directory channel registered at attach.
type Connection struct {
	ws         wsConnection
	gw         gateway
	connID     string
	fromClient chan protocol.Envelope
	fromServer chan protocol.Message
	errorCh    chan error
}

func NewConnection(gw gateway, ws wsConnection, connID string) *Connection {
	return &Connection{
		ws:         ws,
		gw:         gw,
		connID:     connID,
		fromClient: make(chan protocol.Envelope),
		fromServer: gw.Attach(connID),
		errorCh:    make(chan error, 2),
	}
}

func (c *Connection) Handle(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		close(c.fromClient)
		close(c.errorCh)
		c.gw.Detach(c.connID)
	}()

	var wg sync.WaitGroup
	wg.Go(func() {
		c.errorCh <- c.pumpMessages(ctx)
		cancel()
	})

	wg.Go(func() {
		c.errorCh <- c.mainLoop(ctx)
		cancel()
	})

	var err error
	select {
	case err = <-c.errorCh:
	case <-ctx.Done():
		// Cancellation may be the result of a pump error; prefer the
		// error when one is already queued.
		select {
		case err = <-c.errorCh:
		default:
		}
	}
	c.ws.Close()
	wg.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

func (c *Connection) pumpMessages(ctx context.Context) error {
	for {
		var ev protocol.Envelope
		if err := c.ws.ReadJSON(&ev); err != nil {
			return err
		}
		select {
		case c.fromClient <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Connection) mainLoop(ctx context.Context) error {
	for {
		select {
		case ev := <-c.fromClient:
			c.gw.Dispatch(c.connID, ev)
		case ev, ok := <-c.fromServer:
			if !ok {
				return nil
			}
			if err := c.ws.WriteJSON(ev); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}
