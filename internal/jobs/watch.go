package jobs

import (
	"context"

	"github.com/desertthunder/tunedeck/internal/models"
)

// Update is one observation streamed by [Poller.Watch].
//
// The final update has Done set; Err is non-nil when the watch ended without the job completing.
type Update struct {
	Job  *models.Job
	Err  error
	Done bool
}

// Watch polls id in a goroutine and streams each observed state on the returned channel.
//
// The channel is closed after the final update. Cancelling ctx stops polling; a reader that
// stops receiving must cancel ctx so the goroutine can exit.
func (p *Poller) Watch(ctx context.Context, id int64, opts PollOptions) <-chan Update {
	updates := make(chan Update, 1)

	go func() {
		defer close(updates)

		send := func(u Update) bool {
			select {
			case updates <- u:
				return true
			case <-ctx.Done():
				return false
			}
		}

		onUpdate := opts.OnUpdate
		opts.OnUpdate = func(job *models.Job) {
			if onUpdate != nil {
				onUpdate(job)
			}
			if !job.Status.IsTerminal() {
				send(Update{Job: job})
			}
		}

		job, err := p.Poll(ctx, id, opts)
		final := Update{Job: job, Err: err, Done: true}
		if ctx.Err() != nil {
			// the reader may be gone; never block on the final send
			select {
			case updates <- final:
			default:
			}
			return
		}
		send(final)
	}()

	return updates
}
