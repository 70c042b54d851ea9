// Package wspush is the thin transport adapter for the progress stream's
// outbound push surface (spec §6): it upgrades an HTTP connection to a raw
// WebSocket using gobwas/ws and writes each stream.Event as a JSON text
// frame, closing the socket when the subscription ends.
package wspush

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	jsoniter "github.com/json-iterator/go"

	"github.com/internal/searchcrawl/internal/stream"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Serve upgrades r/w to a WebSocket and pushes every event from sub until
// the subscription's channel closes or the connection errors out.
// Subscriber disconnect (read error, closed conn) only ends this
// subscription — the crawl underneath keeps running (spec §5).
func Serve(ctx context.Context, w http.ResponseWriter, r *http.Request, sub *stream.Subscription) error {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Detect subscriber disconnect by watching for any inbound frame or
	// read error; the client sends none, so any activity means "gone".
	disconnect := make(chan struct{})
	go func() {
		defer close(disconnect)
		buf := make([]byte, 1)
		_ = conn.SetReadDeadline(time.Time{})
		if tcp, ok := conn.(*net.TCPConn); ok {
			_ = tcp.SetKeepAlive(true)
		}
		_, _ = conn.Read(buf)
	}()

	for {
		select {
		case ev, ok := <-sub.Events:
			if !ok {
				return nil
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				slog.Warn("wspush: failed to marshal event", "error", err)
				continue
			}
			if err := wsutil.WriteServerMessage(conn, ws.OpText, payload); err != nil {
				return err
			}
		case <-disconnect:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
