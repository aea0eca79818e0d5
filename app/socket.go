package app

import (
	"sync"

	socketio "github.com/googollee/go-socket.io"
)

var socketMu sync.Mutex
var sockets = make(map[string]socketio.Conn)

func init() {
	SetupFuncs = append(SetupFuncs, func(server *socketio.Server) {
		server.OnConnect("/", func(s socketio.Conn) error {
			socketMu.Lock()
			sockets[s.ID()] = s
			socketMu.Unlock()
			return nil
		})
		server.OnDisconnect("/", func(s socketio.Conn, reason string) {
			socketMu.Lock()
			delete(sockets, s.ID())
			socketMu.Unlock()
		})
	})
}

// Push a job change to all connected clients.
func broadcastJob(job *DBJob) {
	socketMu.Lock()
	for _, s := range sockets {
		s.Emit("job-update", job)
	}
	socketMu.Unlock()
}
