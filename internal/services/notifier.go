package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/taskflowhq/taskflow-backend/internal/logger"
	"github.com/taskflowhq/taskflow-backend/internal/sendgrid"
	"github.com/taskflowhq/taskflow-backend/internal/types"
)

// InvitationNotifier is invoked after an invitation commits. It is
// best-effort: failures are logged by the implementation and never surface
// to the workflow that created the invitation.
type InvitationNotifier interface {
	NotifyInvitation(ctx context.Context, invitation *types.ProjectInvitation, project *types.Project, invited *types.User)
}

type emailInvitationNotifier struct {
	log     *logger.Logger
	mail    sendgrid.Client
	baseURL string
}

func NewEmailInvitationNotifier(log *logger.Logger, mail sendgrid.Client, baseURL string) InvitationNotifier {
	return &emailInvitationNotifier{
		log:     log.With("service", "InvitationNotifier"),
		mail:    mail,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (n *emailInvitationNotifier) NotifyInvitation(ctx context.Context, invitation *types.ProjectInvitation, project *types.Project, invited *types.User) {
	name := invited.FirstName
	if name == "" {
		name = invited.Username
	}
	acceptLink := fmt.Sprintf("%s/projects/invitations/%s/accept", n.baseURL, invitation.ID)
	declineLink := fmt.Sprintf("%s/projects/invitations/%s/decline", n.baseURL, invitation.ID)

	text := fmt.Sprintf(`Hi %s,

You have been invited to join the project %q as %s.

Accept:  %s
Decline: %s

If you did not expect this email, you can ignore it.

- TaskFlow`, name, project.Name, invitation.Role, acceptLink, declineLink)

	_, err := n.mail.Send(ctx, sendgrid.SendEmailRequest{
		To:      []sendgrid.EmailAddress{{Email: invited.Email, Name: invited.FullName()}},
		Subject: fmt.Sprintf("You have been invited to project %s", project.Name),
		Text:    text,
	})
	if err != nil {
		n.log.Error("Failed to send invitation email",
			"error", err, "invitation_id", invitation.ID, "project_id", project.ID)
		return
	}
	n.log.Info("Invitation email sent", "invitation_id", invitation.ID)
}

// logInvitationNotifier stands in when no mail provider is configured.
type logInvitationNotifier struct {
	log *logger.Logger
}

func NewLogInvitationNotifier(log *logger.Logger) InvitationNotifier {
	return &logInvitationNotifier{log: log.With("service", "InvitationNotifier")}
}

func (n *logInvitationNotifier) NotifyInvitation(ctx context.Context, invitation *types.ProjectInvitation, project *types.Project, invited *types.User) {
	n.log.Info("Invitation created (mail disabled)",
		"invitation_id", invitation.ID, "project_id", project.ID, "role", invitation.Role)
}
