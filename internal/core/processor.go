package core

// Processor is a hook invoked around each chat completion invocation.
type Processor interface {
	// Name returns the processor name
	Name() string
	// Priority returns the execution priority (lower = earlier)
	Priority() int
	// OnRequest is called before the invocation is formatted and sent upstream
	OnRequest(ctx *RequestContext, inv *Invocation) error
	// OnResponse is called with the decoded output after the call completes
	OnResponse(ctx *RequestContext, output string) error
}
