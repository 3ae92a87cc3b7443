package bridge

import (
	"bufio"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// link is one live websocket connection shared by a reader and any number of
// writers. writeMu is held for a whole frame, including control replies sent
// from the read side, so frames never interleave on the wire.
type link struct {
	conn    net.Conn
	reader  io.Reader
	state   ws.State
	writeMu sync.Mutex
	dead    atomic.Bool
}

func newLink(conn net.Conn, br *bufio.Reader, state ws.State) *link {
	l := &link{conn: conn, reader: conn, state: state}
	if br != nil && br.Buffered() > 0 {
		l.reader = io.MultiReader(br, conn)
	}
	return l
}

// writeText sends p as a single text frame.
func (l *link) writeText(p []byte) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	return wsutil.WriteMessage(l.conn, l.state, ws.OpText, p)
}

// readText returns the next text message. Pings and closes are answered
// under the write lock, binary frames are skipped.
func (l *link) readText() ([]byte, error) {
	control := wsutil.ControlFrameHandler(l.conn, l.state)
	handle := func(h ws.Header, r io.Reader) error {
		l.writeMu.Lock()
		defer l.writeMu.Unlock()
		return control(h, r)
	}
	rd := wsutil.Reader{
		Source:         l.reader,
		State:          l.state,
		CheckUTF8:      true,
		OnIntermediate: handle,
	}
	for {
		hdr, err := rd.NextFrame()
		if err != nil {
			return nil, err
		}
		if hdr.OpCode.IsControl() {
			if err := handle(hdr, &rd); err != nil {
				return nil, err
			}
			continue
		}
		if hdr.OpCode&ws.OpText == 0 {
			if err := rd.Discard(); err != nil {
				return nil, err
			}
			continue
		}
		return io.ReadAll(&rd)
	}
}

func (l *link) close() {
	l.dead.Store(true)
	_ = l.conn.Close()
}
