package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	// readWait bounds how long a silent client is kept. The UI pings far
	// more often than this.
	readWait = 5 * time.Minute
)

// WriteMessage sends one frame with a write deadline.
func WriteMessage(conn *websocket.Conn, msg Message) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}

// ErrorMessage builds an error frame for a failed action.
func ErrorMessage(action Action, code, errMsg string, data any) Message {
	return Message{Event: EventError, Action: action, Code: code, Error: errMsg, Data: data}
}

// ReadRequest reads and decodes one client action with a read deadline.
func ReadRequest(conn *websocket.Conn) (Request, error) {
	var req Request
	_ = conn.SetReadDeadline(time.Now().Add(readWait))
	err := conn.ReadJSON(&req)
	return req, err
}

// CloseNormal sends a normal closure frame with reason.
func CloseNormal(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
