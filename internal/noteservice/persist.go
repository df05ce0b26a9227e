package noteservice

import (
	"context"
	"log/slog"
	"sync"

	"github.com/starford/flownote/internal/storage"
)

type writeFunc func(ctx context.Context, doc storage.Document, data []byte) error

// persister writes documents in the order they were first queued. A document
// queued again before it is written is only written once, with the newest data.
type persister struct {
	write  writeFunc
	logger *slog.Logger

	mu        sync.Mutex
	pending   map[storage.Document][]byte
	failed    map[storage.Document]error
	order     []storage.Document
	seq       uint64
	completed uint64
	changed   chan struct{}
	closed    bool

	wake chan struct{}
	done chan struct{}
}

func newPersister(write writeFunc, logger *slog.Logger) *persister {
	p := &persister{
		write:   write,
		logger:  logger,
		pending: make(map[storage.Document][]byte),
		failed:  make(map[storage.Document]error),
		changed: make(chan struct{}),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go p.loop()
	return p
}

func (p *persister) enqueue(doc storage.Document, data []byte) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.logger.Warn("noteservice: write after close dropped", slog.String("document", string(doc)))
		return
	}
	if _, queued := p.pending[doc]; !queued {
		p.order = append(p.order, doc)
	}
	p.pending[doc] = data
	p.seq++
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *persister) loop() {
	defer close(p.done)
	for range p.wake {
		p.drain()
		p.mu.Lock()
		closed := p.closed && len(p.order) == 0
		p.mu.Unlock()
		if closed {
			return
		}
	}
}

func (p *persister) drain() {
	for {
		p.mu.Lock()
		if len(p.order) == 0 {
			p.completed = p.seq
			close(p.changed)
			p.changed = make(chan struct{})
			p.mu.Unlock()
			return
		}
		doc := p.order[0]
		p.order = p.order[1:]
		data := p.pending[doc]
		delete(p.pending, doc)
		p.mu.Unlock()

		err := p.write(context.Background(), doc, data)
		p.mu.Lock()
		if err != nil {
			p.failed[doc] = err
		} else {
			delete(p.failed, doc)
		}
		p.mu.Unlock()
		if err != nil {
			p.logger.Error("noteservice: persist failed, cache kept",
				slog.String("document", string(doc)),
				slog.String("error", err.Error()))
			continue
		}
		p.logger.Debug("noteservice: persisted", slog.String("document", string(doc)))
	}
}

func (p *persister) flush(ctx context.Context) error {
	p.mu.Lock()
	target := p.seq
	p.mu.Unlock()
	for {
		p.mu.Lock()
		if p.completed >= target {
			p.mu.Unlock()
			return nil
		}
		if p.closed && p.isDone() {
			p.mu.Unlock()
			return errClosed
		}
		ch := p.changed
		p.mu.Unlock()
		select {
		case <-ch:
		case <-p.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// lastError returns the error of the most recent write of doc, if it failed.
func (p *persister) lastError(doc storage.Document) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failed[doc]
}

func (p *persister) isDone() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (p *persister) close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.done
		return
	}
	p.closed = true
	p.mu.Unlock()
	select {
	case p.wake <- struct{}{}:
	default:
	}
	<-p.done
}
