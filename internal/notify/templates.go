package notify

import (
	"fmt"

	"github.com/Al0olo/Cloud-Government/internal/model"
)

// EmailTemplate is a rendered notification email.
type EmailTemplate struct {
	Subject string
	Body    string
}

// templates is the closed set of renderers, one per declared
// notification type. Rendering an unknown type is an explicit error so
// a bad dispatch can never produce blank mail.
var templates = map[string]func(firstName string, data map[string]any) EmailTemplate{
	model.NotifyApplicationCreated: func(firstName string, data map[string]any) EmailTemplate {
		return EmailTemplate{
			Subject: "Your Application Has Been Created",
			Body: fmt.Sprintf(`<h2>Hello %s,</h2>
<p>Your application has been successfully created.</p>
<p>Application Type: %s</p>
<p>Status: %s</p>`, firstName, str(data, "applicationType"), str(data, "status")),
		}
	},
	model.NotifyApplicationUpdated: func(firstName string, data map[string]any) EmailTemplate {
		return EmailTemplate{
			Subject: "Your Application Has Been Updated",
			Body: fmt.Sprintf(`<h2>Hello %s,</h2>
<p>Your application has been updated.</p>
<p>Application Type: %s</p>
<p>Status: %s</p>`, firstName, str(data, "applicationType"), str(data, "status")),
		}
	},
	model.NotifyApplicationStatusChanged: func(firstName string, data map[string]any) EmailTemplate {
		return EmailTemplate{
			Subject: "Application Status Updated",
			Body: fmt.Sprintf(`<h2>Hello %s,</h2>
<p>Your application status has been updated.</p>
<p>Previous Status: %s</p>
<p>New Status: %s</p>`, firstName, str(data, "previousStatus"), str(data, "newStatus")),
		}
	},
	model.NotifyDocumentUploaded: func(firstName string, data map[string]any) EmailTemplate {
		return EmailTemplate{
			Subject: "Document Received",
			Body: fmt.Sprintf(`<h2>Hello %s,</h2>
<p>We received a new document for your application.</p>
<p>Document Type: %s</p>
<p>It is now awaiting verification by our staff.</p>`, firstName, str(data, "documentType")),
		}
	},
	model.NotifyReviewCompleted: func(firstName string, data map[string]any) EmailTemplate {
		return EmailTemplate{
			Subject: "Document Review Completed",
			Body: fmt.Sprintf(`<h2>Hello %s,</h2>
<p>A document on your application has been reviewed.</p>
<p>Document Type: %s</p>
<p>Decision: %s</p>`, firstName, str(data, "documentType"), str(data, "status")),
		}
	},
}

// RenderTemplate produces the email for a notification type. It fails
// for types outside the declared set.
func RenderTemplate(notifType, firstName string, data map[string]any) (EmailTemplate, error) {
	render, ok := templates[notifType]
	if !ok {
		return EmailTemplate{}, fmt.Errorf("notify: no template for type %q", notifType)
	}
	return render(firstName, data), nil
}

func str(data map[string]any, key string) string {
	if data == nil {
		return ""
	}
	if v, ok := data[key]; ok {
		return fmt.Sprint(v)
	}
	return ""
}
