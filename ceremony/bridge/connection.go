package bridge

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// pageConnection is the websocket held open by the ceremony page.
type pageConnection struct {
	conn      *websocket.Conn
	writeMu   *sync.Mutex
	pendingMu *sync.Mutex
	pending   map[string]chan *response
	done      chan struct{}
	closeOnce *sync.Once
}

func newPageConnection(conn *websocket.Conn) *pageConnection {
	return &pageConnection{
		conn:      conn,
		writeMu:   &sync.Mutex{},
		pendingMu: &sync.Mutex{},
		pending:   make(map[string]chan *response),
		done:      make(chan struct{}),
		closeOnce: &sync.Once{},
	}
}

func (p *pageConnection) send(req request) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.conn.WriteJSON(req)
}

func (p *pageConnection) register(id string) <-chan *response {
	ch := make(chan *response, 1)
	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()
	p.pending[id] = ch
	return ch
}

func (p *pageConnection) unregister(id string) {
	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()
	delete(p.pending, id)
}

// listen dispatches page responses to the ceremonies awaiting them until the socket closes.
func (p *pageConnection) listen() {
	defer p.close()

	for {
		var msg map[string]any
		if err := p.conn.ReadJSON(&msg); err != nil {
			if isCloseError(err) {
				log.Debug("ceremony page disconnected")
			} else {
				log.WithError(err).Warn("ceremony page connection failed")
			}
			return
		}

		resp, err := decodeResponse(msg)
		if err != nil {
			log.WithError(err).Debug("ignoring page message")
			continue
		}

		p.pendingMu.Lock()
		ch, ok := p.pending[resp.ID]
		p.pendingMu.Unlock()
		if !ok {
			log.Debugf("ignoring response for unknown ceremony %s", resp.ID)
			continue
		}
		select {
		case ch <- resp:
		default:
		}
	}
}

func (p *pageConnection) close() {
	p.closeOnce.Do(func() {
		close(p.done)
		// nolint
		p.conn.Close()
	})
}

func isCloseError(err error) bool {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return closeErr.Code == websocket.CloseNormalClosure ||
			closeErr.Code == websocket.CloseGoingAway ||
			closeErr.Code == websocket.CloseNoStatusReceived
	}
	return errors.Is(err, websocket.ErrCloseSent)
}
