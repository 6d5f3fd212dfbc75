package tme

import "sync"

// NewCatalogContext returns a CatalogContext that closes every attached Catalog when it is closed.
//
// Done() fires once Close() has been called and the last attached catalog has detached, so a
// workspace can wait for every badger db it opened to be flushed before exiting.
func NewCatalogContext() CatalogContext {
	return &catalogContext{
		attached: make(map[Catalog]struct{}),
		done:     make(chan struct{}),
	}
}

type catalogContext struct {
	mu       sync.Mutex
	attached map[Catalog]struct{}
	closing  bool
	done     chan struct{}
	doneOnce sync.Once
}

func (ctx *catalogContext) AttachCatalog(cat Catalog) {
	ctx.mu.Lock()
	ctx.attached[cat] = struct{}{}
	ctx.mu.Unlock()
}

// DetachCatalog is called by a Catalog as it closes.
func (ctx *catalogContext) DetachCatalog(cat Catalog) {
	ctx.mu.Lock()
	delete(ctx.attached, cat)
	finished := ctx.closing && len(ctx.attached) == 0
	ctx.mu.Unlock()

	if finished {
		ctx.signalDone()
	}
}

func (ctx *catalogContext) Done() <-chan struct{} {
	return ctx.done
}

func (ctx *catalogContext) signalDone() {
	ctx.doneOnce.Do(func() {
		close(ctx.done)
	})
}

// Close asks every attached catalog to close; it does not wait for them (see Done).
func (ctx *catalogContext) Close() {
	ctx.mu.Lock()
	if ctx.closing {
		ctx.mu.Unlock()
		return
	}
	ctx.closing = true
	open := make([]Catalog, 0, len(ctx.attached))
	for cat := range ctx.attached {
		open = append(open, cat)
	}
	ctx.mu.Unlock()

	if len(open) == 0 {
		ctx.signalDone()
		return
	}
	for _, cat := range open {
		go cat.Close()
	}
}
