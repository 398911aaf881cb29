// internal/applications/notifier.go
package applications

import (
	"context"
	"fmt"

	"jobboard-backend/internal/common/logger"
	"jobboard-backend/internal/models"
)

// EmailSender is the outbound mail surface, satisfied by the SES client.
type EmailSender interface {
	SendSimpleEmail(ctx context.Context, from, to, subject, body string) error
}

// Notifier emails candidates about submission and review progress. Delivery
// is strictly best-effort; failures are logged and never fail the operation
// that triggered them.
type Notifier struct {
	sender EmailSender
	from   string
	logger logger.Logger
}

func NewNotifier(sender EmailSender, from string, log logger.Logger) *Notifier {
	return &Notifier{
		sender: sender,
		from:   from,
		logger: log.WithFields(map[string]interface{}{"component": "application-notifier"}),
	}
}

var statusSubjects = map[models.ApplicationStatus]string{
	models.ApplicationStatusUnderReview: "Your application is under review",
	models.ApplicationStatusShortlisted: "You have been shortlisted",
	models.ApplicationStatusRejected:    "An update on your application",
	models.ApplicationStatusAccepted:    "Congratulations, your application was accepted",
}

// ApplicationReceived confirms a successful submission to the candidate.
func (n *Notifier) ApplicationReceived(ctx context.Context, app *models.Application) {
	if n == nil || n.sender == nil {
		return
	}
	body := fmt.Sprintf(
		"Hi %s,\n\nWe received your application. We'll be in touch once it has been reviewed.\n\nReference: %s\n",
		app.Candidate.Name, app.ID)
	n.send(ctx, app, "We received your application", body)
}

// StatusChanged informs the candidate of a review outcome. Statuses without
// a candidate-facing message are skipped.
func (n *Notifier) StatusChanged(ctx context.Context, app *models.Application) {
	if n == nil || n.sender == nil {
		return
	}
	subject, ok := statusSubjects[app.Status]
	if !ok {
		return
	}
	body := fmt.Sprintf(
		"Hi %s,\n\nThe status of your application is now: %s.\n\nReference: %s\n",
		app.Candidate.Name, app.Status, app.ID)
	n.send(ctx, app, subject, body)
}

func (n *Notifier) send(ctx context.Context, app *models.Application, subject, body string) {
	if err := n.sender.SendSimpleEmail(ctx, n.from, app.Candidate.Email, subject, body); err != nil {
		n.logger.WithError(err).Warn("candidate notification failed", map[string]interface{}{
			"applicationId": app.ID,
			"subject":       subject,
		})
		return
	}
	n.logger.Debug("candidate notification sent", map[string]interface{}{
		"applicationId": app.ID,
		"subject":       subject,
	})
}
