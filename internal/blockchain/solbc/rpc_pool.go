package solbc

import (
	"sync"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
)

// DefaultCooldown is how long an endpoint is skipped after a transient failure.
const DefaultCooldown = 10 * time.Second

type endpoint struct {
	url       string
	rpc       *rpc.Client
	downUntil time.Time
}

// rpcPool hands out endpoints round-robin, skipping those cooling down after a
// transient failure. When every endpoint is cooling down it rotates over all of
// them so calls still reach the network.
type rpcPool struct {
	mutex     sync.Mutex
	endpoints []*endpoint
	index     int
	cooldown  time.Duration
	now       func() time.Time
}

func newRPCPool(urls []string, cooldown time.Duration) *rpcPool {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	p := &rpcPool{cooldown: cooldown, now: time.Now}
	for _, url := range urls {
		p.endpoints = append(p.endpoints, &endpoint{url: url, rpc: rpc.New(url)})
	}
	return p
}

func (p *rpcPool) next() *endpoint {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	now := p.now()
	n := len(p.endpoints)
	for i := 0; i < n; i++ {
		ep := p.endpoints[(p.index+i)%n]
		if !now.Before(ep.downUntil) {
			p.index = (p.index + i + 1) % n
			return ep
		}
	}
	ep := p.endpoints[p.index]
	p.index = (p.index + 1) % n
	return ep
}

func (p *rpcPool) markDown(ep *endpoint) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	ep.downUntil = p.now().Add(p.cooldown)
}

// healthy counts endpoints that are not cooling down.
func (p *rpcPool) healthy() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	now := p.now()
	count := 0
	for _, ep := range p.endpoints {
		if !now.Before(ep.downUntil) {
			count++
		}
	}
	return count
}
