package engine

import "context"

// The update serializer: a single worker goroutine consumes submitted jobs
// one at a time, in submission order. This turns concurrent read-modify
// -write requests against the snapshot into a strict sequence without
// locking every critical section. One job's failure is returned to its
// submitter only and never poisons the jobs behind it.

type job struct {
	ctx  context.Context
	fn   func(context.Context) error
	done chan error
}

func (s *Service) worker() {
	for {
		select {
		case j := <-s.jobs:
			j.done <- j.fn(j.ctx)
		case <-s.quit:
			// Drain anything already submitted so no caller hangs.
			for {
				select {
				case j := <-s.jobs:
					j.done <- ErrClosed
				default:
					return
				}
			}
		}
	}
}

// do submits fn and waits for its completion. Once accepted, a job always
// runs to completion; ctx is passed through to the job, not used to abandon
// it.
func (s *Service) do(ctx context.Context, fn func(context.Context) error) error {
	j := job{ctx: ctx, fn: fn, done: make(chan error, 1)}
	select {
	case s.jobs <- j:
	case <-s.quit:
		return ErrClosed
	}
	return <-j.done
}
