package capture

import "context"

// Result of a finished recording
type Result struct {
	Path  string // absolute path of the WAV file
	Stats Stats
}

// Pending completes once the capture goroutine has finalized, or failed.
type Pending struct {
	done chan struct{}
	res  Result
	err  error
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func (p *Pending) resolve(res Result, err error) {
	p.res, p.err = res, err
	close(p.done)
}

// Done is closed when the result is available
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the recording is finalized or ctx ends
func (p *Pending) Wait(ctx context.Context) (Result, error) {
	select {
	case <-p.done:
		return p.res, p.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Result blocks until the recording is finalized
func (p *Pending) Result() (Result, error) {
	<-p.done
	return p.res, p.err
}
