package gateway

import (
	"context"

	"github.com/hazyhaar/leadsync/idgen"
)

var newQueueID = idgen.Prefixed("q_", idgen.Default)

type queuedCall struct {
	id       string
	method   string
	endpoint string
	payload  []byte
}

// Online reports the last connectivity signal.
func (g *Gateway) Online() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.online
}

// QueueLen returns the number of deferred calls.
func (g *Gateway) QueueLen() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.queue)
}

// SetOnline records a connectivity change. Going online starts a drain of
// the queue unless one is already running.
func (g *Gateway) SetOnline(online bool) {
	g.mu.Lock()
	changed := g.online != online
	g.online = online
	if changed {
		g.epoch++
	}
	start := online && !g.draining && len(g.queue) > 0
	if start {
		g.draining = true
	}
	g.mu.Unlock()

	if changed {
		g.logger.Info("gateway: connectivity changed", "online", online)
	}
	if start {
		go g.drain(g.baseCtx)
	}
}

func (g *Gateway) enqueue(method, endpoint string, payload []byte) {
	g.mu.Lock()
	c := &queuedCall{id: newQueueID(), method: method, endpoint: endpoint, payload: payload}
	g.queue = append(g.queue, c)
	n := len(g.queue)
	g.mu.Unlock()
	g.logger.Info("gateway: request queued", "id", c.id, "method", method, "endpoint", endpoint, "queued", n)
}

// drain sends queued calls one at a time in FIFO order until the queue is
// empty, connectivity drops or ctx ends. Calls appended meanwhile are sent
// in the same pass. The head leaves the queue only once it was delivered or
// failed for good; a connection failure keeps it first and ends the pass
// unless connectivity came back in the meantime.
func (g *Gateway) drain(ctx context.Context) {
	sent := 0
	for {
		g.mu.Lock()
		if !g.online || len(g.queue) == 0 || ctx.Err() != nil {
			g.stopDrain(sent)
			return
		}
		c := g.queue[0]
		epoch := g.epoch
		g.mu.Unlock()

		err := g.send(ctx, c.method, c.endpoint, c.payload, nil, true)
		if err != nil && (ctx.Err() != nil || IsKind(err, KindNetwork) || IsKind(err, KindTimeout)) {
			g.logger.Warn("gateway: queued request kept", "id", c.id, "method", c.method, "endpoint", c.endpoint, "error", err)
			g.mu.Lock()
			if g.online && g.epoch != epoch && ctx.Err() == nil {
				g.mu.Unlock()
				continue
			}
			g.stopDrain(sent)
			return
		}

		g.mu.Lock()
		if len(g.queue) > 0 && g.queue[0] == c {
			g.queue[0] = nil
			g.queue = g.queue[1:]
		}
		g.mu.Unlock()

		if err != nil {
			g.logger.Error("gateway: queued request failed", "id", c.id, "method", c.method, "endpoint", c.endpoint, "error", err)
			continue
		}
		sent++
	}
}

// stopDrain ends a pass. g.mu must be held; it is released.
func (g *Gateway) stopDrain(sent int) {
	g.draining = false
	left := len(g.queue)
	g.mu.Unlock()
	g.logger.Info("gateway: queue drained", "sent", sent, "left", left)
}
