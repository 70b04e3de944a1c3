package backend

import (
	"net/http"

	"nhooyr.io/websocket"
)

// NewWebSocketBackend builds the sample echo backend the gateway's
// websocket tunnel proxies through: it accepts the upgrade, echoes every
// message back, and closes normally when the client does.
func NewWebSocketBackend() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusInternalError, "internal error")

		ctx := r.Context()
		for {
			msgType, msg, err := conn.Read(ctx)
			if err != nil {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			if err := conn.Write(ctx, msgType, msg); err != nil {
				return
			}
		}
	})
}
