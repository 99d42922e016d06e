package wsexchange

import (
	"sync"

	"github.com/gorilla/websocket"
)

// conn adapts a *websocket.Conn to peergroup.Transport (io.ReadWriteCloser).
// gorilla/websocket is message-framed; Read presents the stream as a plain
// byte source by buffering whatever is left of the current binary message
// across calls, and Write sends one binary message per call.
type conn struct {
	ws *websocket.Conn

	readMu sync.Mutex
	rest   []byte

	writeMu sync.Mutex
}

func newConn(ws *websocket.Conn) *conn {
	return &conn{ws: ws}
}

func (c *conn) Read(p []byte) (int, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	for len(c.rest) == 0 {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return 0, err
		}
		c.rest = data
	}
	n := copy(p, c.rest)
	c.rest = c.rest[n:]
	return n, nil
}

func (c *conn) Write(p []byte) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *conn) Close() error {
	return c.ws.Close()
}

func (c *conn) RemoteAddr() string {
	return c.ws.RemoteAddr().String()
}
