package core

import "sort"

// Pipeline holds the registered processors and runs them in priority order.
type Pipeline struct {
	processors []Processor
}

// NewPipeline creates an empty pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{}
}

// Add registers a processor. The slice is kept sorted so execution order is
// fixed from registration time onward.
func (p *Pipeline) Add(proc Processor) {
	p.processors = append(p.processors, proc)
	sort.SliceStable(p.processors, func(i, j int) bool {
		return p.processors[i].Priority() < p.processors[j].Priority()
	})
}

// RunRequest executes every processor's OnRequest hook. The first error
// aborts the run.
func (p *Pipeline) RunRequest(ctx *RequestContext, inv *Invocation) error {
	for _, proc := range p.processors {
		if err := proc.OnRequest(ctx, inv); err != nil {
			return err
		}
	}
	return nil
}

// RunResponse executes every processor's OnResponse hook.
func (p *Pipeline) RunResponse(ctx *RequestContext, output string) error {
	for _, proc := range p.processors {
		if err := proc.OnResponse(ctx, output); err != nil {
			return err
		}
	}
	return nil
}
