package peergroup

import (
	"context"
	"errors"
	"fmt"
)

// Accept is component C11: enable inbound websocket acceptance through the
// exchange, then webrtc. A "transport \"webrtc\" not found" failure is
// downgraded to success (platform without webrtc support); any other
// webrtc error undoes the websocket acceptance before surfacing. cb
// defaults to re-publishing the error on the group's error topic.
func (g *Group) Accept(ctx context.Context, port int, cb func(error)) error {
	if port <= 0 {
		port = defaultAcceptPort
	}
	if cb == nil {
		cb = func(err error) {
			if err != nil {
				g.bus.publish(TopicError, GroupEvent{Err: err})
			}
		}
	}
	if g.opts.Exchange == nil {
		err := fmt.Errorf("peergroup: accept requires an Exchange")
		cb(err)
		return err
	}

	if err := g.opts.Exchange.Accept(ctx, "websocket", RequestOptions{"port": port}); err != nil {
		cb(err)
		return err
	}
	g.call(func() { g.acceptedWS = true })

	if err := g.opts.Exchange.Accept(ctx, "webrtc", RequestOptions{}); err != nil {
		if !errors.Is(err, ErrTransportNotFound) {
			_ = g.opts.Exchange.Unaccept(ctx, "websocket")
			g.call(func() { g.acceptedWS = false })
			cb(err)
			return err
		}
		// webrtc unsupported on this platform: treated as success.
	} else {
		g.call(func() { g.acceptedWebRTC = true })
	}

	g.accepting.Store(true)
	g.ensureExchangePump()

	cb(nil)
	return nil
}

// Unaccept disables inbound websocket/webrtc acceptance. It is a no-op if
// the group isn't currently accepting. It surfaces the first non-nil error
// of the two underlying Unaccept calls.
func (g *Group) Unaccept(ctx context.Context) error {
	if !g.accepting.Load() {
		return nil
	}

	var wasWS, wasRTC bool
	g.call(func() { wasWS = g.acceptedWS; wasRTC = g.acceptedWebRTC })

	var firstErr error
	if wasWS {
		if err := g.opts.Exchange.Unaccept(ctx, "websocket"); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if wasRTC {
		if err := g.opts.Exchange.Unaccept(ctx, "webrtc"); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	g.call(func() {
		g.acceptedWS = false
		g.acceptedWebRTC = false
	})
	g.accepting.Store(false)
	return firstErr
}

// ensureExchangePump starts, at most once, the goroutine draining
// spontaneous exchange events (inbound accepts) into the normal admission
// path (§4.11's last sentence).
func (g *Group) ensureExchangePump() {
	g.call(func() {
		if g.exchangePumpStarted || g.opts.Exchange == nil {
			return
		}
		g.exchangePumpStarted = true
		go g.pumpExchange()
	})
}

func (g *Group) pumpExchange() {
	for ev := range g.opts.Exchange.Events() {
		ev := ev
		g.submit(func() { g.onDiscoveryResult(ev.Transport, ev.Err) })
	}
}
