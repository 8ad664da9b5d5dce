package wizard

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/trezcool/confradar/core"
)

const receiptTemplate = "conference_receipt"

const receiptText = `Hello,

Your conference "{{.Title}}" has been submitted to {{.AppName}}.

Reference: {{.ConferenceID}}
Starts: {{.StartDate}}
Completed steps: {{.Completed}} of {{.Total}}

The {{.AppName}} team
`

const receiptHTML = `<p>Hello,</p>
<p>Your conference <strong>{{.Title}}</strong> has been submitted to {{.AppName}}.</p>
<ul>
  <li>Reference: {{.ConferenceID}}</li>
  <li>Starts: {{.StartDate}}</li>
  <li>Completed steps: {{.Completed}} of {{.Total}}</li>
</ul>
<p>The {{.AppName}} team</p>
`

func init() {
	if err := core.RegisterEmailTemplate(receiptTemplate, receiptText, receiptHTML); err != nil {
		panic(err)
	}
}

type receiptData struct {
	AppName      string
	Title        string
	ConferenceID string
	StartDate    string
	Completed    int
	Total        int
}

// sendReceipt mails the submission receipt to the conference contact, if any.
func (svc *Service) sendReceipt(ctx context.Context, snap Snapshot) {
	if svc.mailer == nil {
		return
	}
	bi := snap.Draft.BasicInfo
	if bi.ContactEmail == "" {
		return
	}
	addr, err := mail.ParseAddress(bi.ContactEmail)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("invalid contact email for conference %s: %v", snap.ConferenceID, err), err, core.PersonFrom(ctx))
		return
	}

	svc.mailer.SendMessages(&core.EmailMessage{
		To:           []mail.Address{*addr},
		Subject:      bi.Title + " submitted",
		TemplateName: receiptTemplate,
		TemplateData: receiptData{
			AppName:      svc.appName,
			Title:        bi.Title,
			ConferenceID: snap.ConferenceID,
			StartDate:    bi.StartDate.Format(time.RFC1123),
			Completed:    len(snap.CompletedSteps),
			Total:        snap.MaxStep,
		},
	})
}
