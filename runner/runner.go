package runner

import (
	"context"

	"bhashakit/core"
)

// Runner wires an ordered chain of handlers into a pipeline. Each handler's
// next-output feeds the following handler's input; events sent to the top are
// echoed back into the first handler, so a handler anywhere in the chain can
// reach the ones above it.
type Runner struct {
	Handlers       []core.IHandler
	logger         *core.Logger
	ctx            context.Context
	cancel         context.CancelFunc
	topOutputChan  chan *core.EventPacket
	lastOutputChan chan *core.EventPacket
	done           chan struct{}
}

func NewRunner(handlers []core.IHandler, logger *core.Logger) *Runner {
	return &Runner{
		Handlers: handlers,
		logger:   logger,
	}
}

// Start initializes and starts every handler. The parent context bounds the
// whole pipeline; cancelling it stops all handler goroutines.
func (r *Runner) Start(parent context.Context) error {
	if len(r.Handlers) == 0 {
		return nil
	}

	r.ctx, r.cancel = context.WithCancel(parent)
	r.topOutputChan = make(chan *core.EventPacket, 100)
	r.lastOutputChan = make(chan *core.EventPacket, 100)
	r.done = make(chan struct{})

	inputChans := make([]chan *core.EventPacket, len(r.Handlers))
	for i := range inputChans {
		inputChans[i] = make(chan *core.EventPacket, 100)
	}

	for i, handler := range r.Handlers {
		var outputNextChan chan<- *core.EventPacket

		if i < len(r.Handlers)-1 {
			outputNextChan = inputChans[i+1]
		} else {
			// Last handler's output is drained here.
			outputNextChan = r.lastOutputChan
		}

		err := handler.Initialize(
			inputChans[i],
			outputNextChan,
			r.topOutputChan,
			r.ctx,
		)
		if err != nil {
			r.cancel()
			return err
		}

		if err := handler.Start(); err != nil {
			r.cancel()
			return err
		}
	}

	go r.listenToOutputs()

	return nil
}

// Done closes when the pipeline has ended, either by cancellation or because
// an end-of-session event fell off the bottom of the chain.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

func (r *Runner) listenToOutputs() {
	defer close(r.done)
	for {
		select {
		case packet := <-r.lastOutputChan:
			if ended := r.processFinalOutput(packet); ended {
				return
			}
		case packet := <-r.topOutputChan:
			r.processTopOutput(packet)
		case <-r.ctx.Done():
			return
		}
	}
}

// processFinalOutput drains events that walked the whole chain unconsumed.
// An end-of-session event here means the connection is gone and the pipeline
// should wind down.
func (r *Runner) processFinalOutput(packet *core.EventPacket) bool {
	if event, ok := packet.Event.(*core.EndSessionEvent); ok {
		r.logger.Infof("session ended: %s", event.Reason)
		r.cancel()
		return true
	}
	return false
}

func (r *Runner) processTopOutput(packet *core.EventPacket) {
	switch event := packet.Event.(type) {
	case *core.CriticalErrorEvent:
		r.logger.Errorf("critical pipeline error: %s", event.Error)
	default:
		// Echo back to the first handler so the event traverses the chain.
		r.Handlers[0].HandleEvent(packet)
	}
}

func (r *Runner) Stop() error {
	if r.cancel != nil {
		r.cancel()
	}

	var errs []error
	for _, handler := range r.Handlers {
		if err := handler.Cleanup(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func (r *Runner) Reset() error {
	var errs []error
	for _, handler := range r.Handlers {
		if err := handler.Reset(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
