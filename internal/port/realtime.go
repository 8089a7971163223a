package port

import "context"

// SocketSender pushes a frame to a single open realtime connection. It is
// implemented by the websocket transport; the realtime channel stays ignorant
// of the wire protocol.
type SocketSender interface {
	SendToConnection(ctx context.Context, connectionID string, payload []byte) error
}
