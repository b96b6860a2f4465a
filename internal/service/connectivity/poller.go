package connectivity

import (
	"context"
	"sync"
	"time"
)

// StatusSource is what the poller needs from a prober.
type StatusSource interface {
	GetStatus(ctx context.Context) Status
}

// Poller refreshes the status on a fixed interval and fans it out to listeners.
// Stop cancels the ticker; no listener is called after Stop returns.
type Poller struct {
	source   StatusSource
	interval time.Duration

	mu        sync.RWMutex
	latest    Status
	hasStatus bool
	listeners map[int]chan Status
	nextID    int
	stopped   bool

	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller 创建轮询器，Start 之前不会发起任何请求。
func NewPoller(source StatusSource, interval time.Duration) *Poller {
	return &Poller{
		source:    source,
		interval:  interval,
		listeners: make(map[int]chan Status),
		latest: Status{
			Summary: "🔗 Đang kiểm tra kết nối...",
		},
	}
}

// Start runs one probe immediately and then one per interval until ctx ends or Stop is called.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.mu.Unlock()

	go p.loop(ctx)
}

// Stop cancels the loop, waits for it to exit and closes every subscription.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	p.mu.Lock()
	p.stopped = true
	for id, ch := range p.listeners {
		close(ch)
		delete(p.listeners, id)
	}
	p.mu.Unlock()
}

// Latest returns the most recent status and whether any probe has completed.
func (p *Poller) Latest() (Status, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest, p.hasStatus
}

// Refresh probes immediately, outside the ticker.
func (p *Poller) Refresh(ctx context.Context) Status {
	status := p.source.GetStatus(ctx)
	p.publish(status)
	return status
}

// Subscribe returns a channel receiving every new status and a function to unsubscribe.
// After Stop the channel comes back already closed.
func (p *Poller) Subscribe() (<-chan Status, func()) {
	ch := make(chan Status, 1)

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := p.nextID
	p.nextID++
	p.listeners[id] = ch
	p.mu.Unlock()

	return ch, func() {
		p.mu.Lock()
		if existing, ok := p.listeners[id]; ok {
			close(existing)
			delete(p.listeners, id)
		}
		p.mu.Unlock()
	}
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	status := p.source.GetStatus(ctx)
	if ctx.Err() != nil {
		return
	}
	p.publish(status)
}

func (p *Poller) publish(status Status) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.latest = status
	p.hasStatus = true
	for _, ch := range p.listeners {
		select {
		case ch <- status:
		default:
			// 丢弃旧值，保留最新状态
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- status:
			default:
			}
		}
	}
}
