package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	tpl "github.com/oksasatya/authshop/pkg/mailer/templates"
)

// ErrBadJob marks jobs that can never be delivered; the worker drops them
// instead of requeueing.
var ErrBadJob = errors.New("bad email job")

// DecodeJob parses a queue message body.
func DecodeJob(body []byte) (EmailJob, error) {
	var job EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		return EmailJob{}, fmt.Errorf("%w: %v", ErrBadJob, err)
	}
	if job.To == "" {
		return EmailJob{}, fmt.Errorf("%w: missing recipient", ErrBadJob)
	}
	return job, nil
}

// ensureRecipient fills Email/RecipientEmail from To when the producer left them out.
func ensureRecipient(job *EmailJob) {
	if job.Data == nil {
		job.Data = map[string]any{}
	}
	if v, ok := job.Data["Email"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["Email"] = job.To
	}
	if v, ok := job.Data["RecipientEmail"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["RecipientEmail"] = job.To
	}
}

// Deliver renders the job if it names a template and hands it to the sender.
// Render and validation failures wrap ErrBadJob; sender failures are returned as is.
func Deliver(ctx context.Context, s Sender, job EmailJob) error {
	subject, text, html := job.Subject, job.Text, job.HTML

	if job.Template != "" {
		if !tpl.Known(job.Template) {
			return fmt.Errorf("%w: unknown template %q", ErrBadJob, job.Template)
		}
		ensureRecipient(&job)
		var err error
		subject, text, html, err = tpl.Render(job.Template, job.Data)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBadJob, err)
		}
	} else if subject == "" || (text == "" && html == "") {
		return fmt.Errorf("%w: either template or subject with text/html is required", ErrBadJob)
	}

	c, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	return s.Send(c, job.To, subject, text, html)
}
