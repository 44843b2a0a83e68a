package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"text/template"
	"time"

	"github.com/creativetemmy/pair2pass-sub000/models"
)

// EmailClient delivers notification emails through the transactional-email
// API. Every send is best-effort: callers use SendAsync and never block a
// lifecycle transition on email delivery.
type EmailClient struct {
	BaseURL string
	APIKey  string
	From    string
	Client  *http.Client
}

func NewEmailClient(baseURL, apiKey, from string) *EmailClient {
	return &EmailClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		From:    from,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type emailTemplate struct {
	Subject string
	Text    string
}

// Templates keyed by notification kind. Data fields are free-form strings
// supplied by the caller.
var emailTemplates = map[models.NotificationType]emailTemplate{
	models.NotifMatchRequest: {
		Subject: "📚 New study partner request",
		Text:    "{{.requester}} wants to study {{.subject}} with you for {{.duration}} minutes. Open Pair2Pass to respond before it expires.",
	},
	models.NotifMatchFound: {
		Subject: "🎉 It's a match!",
		Text:    "{{.partner}} accepted your request. Your {{.subject}} session lobby is open.",
	},
	models.NotifMatchAccepted: {
		Subject: "✅ Request accepted",
		Text:    "You accepted a study request from {{.partner}}. Head to the lobby to get started.",
	},
	models.NotifMatchRejected: {
		Subject: "Request declined",
		Text:    "{{.partner}} can't make this session. Send a new request any time.",
	},
	models.NotifMatchExpired: {
		Subject: "⏰ Request expired",
		Text:    "Your study request for {{.subject}} expired without a response.",
	},
	models.NotifSessionReady: {
		Subject: "🚀 Both partners ready",
		Text:    "Both of you checked in. Your {{.subject}} session starts in 5 minutes.",
	},
	models.NotifSessionReminder: {
		Subject: "⏳ Session starting soon",
		Text:    "Your {{.subject}} session is about to start. Don't leave your partner waiting!",
	},
	models.NotifSessionComplete: {
		Subject: "🏁 Session complete",
		Text:    "Nice work! Your {{.subject}} session is complete and your Pass Points have been added.",
	},
	models.NotifSessionCancelled: {
		Subject: "Session cancelled",
		Text:    "Your {{.subject}} session was cancelled.",
	},
	models.NotifMilestoneReached: {
		Subject: "🎖️ Milestone reached",
		Text:    "You reached Level {{.level}} on Pair2Pass. Keep the streak going!",
	},
	models.NotifTierUp: {
		Subject: "💎 New tier unlocked",
		Text:    "Congratulations — you are now a {{.tier}}!",
	},
	models.NotifBadgeUnlocked: {
		Subject: "🏅 Badge unlocked",
		Text:    "You earned the \"{{.badge}}\" badge. It will be minted to your linked wallet shortly.",
	},
	models.NotifReviewReceived: {
		Subject: "⭐ New review",
		Text:    "{{.reviewer}} rated your last session {{.rating}}/5.",
	},
}

// RenderEmail produces the subject and body for one notification kind.
func RenderEmail(typ models.NotificationType, data map[string]string) (subject, body string, err error) {
	tpl, ok := emailTemplates[typ]
	if !ok {
		return "", "", fmt.Errorf("no email template for notification type %q", typ)
	}

	t, err := template.New(string(typ)).Option("missingkey=zero").Parse(tpl.Text)
	if err != nil {
		return "", "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", "", err
	}
	return tpl.Subject, buf.String(), nil
}

// Send renders and delivers one email. Recipients without a verified email
// are skipped silently, matching the original delivery rules.
func (c *EmailClient) Send(recipient *models.Profile, typ models.NotificationType, data map[string]string) error {
	if recipient == nil || recipient.Email == "" || !recipient.EmailVerified {
		return nil
	}

	subject, body, err := RenderEmail(typ, data)
	if err != nil {
		return err
	}

	payload := map[string]any{
		"from":    c.From,
		"to":      []string{recipient.Email},
		"subject": subject,
		"text":    body,
		"html":    fmt.Sprintf("<p>%s</p>", body),
	}
	jsonData, _ := json.Marshal(payload)

	req, err := http.NewRequest("POST", c.BaseURL+"/emails", bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("email API returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// SendAsync fires Send on a goroutine and only logs failures.
func (c *EmailClient) SendAsync(recipient *models.Profile, typ models.NotificationType, data map[string]string) {
	if c == nil {
		return
	}
	go func() {
		if err := c.Send(recipient, typ, data); err != nil {
			log.Printf("⚠️ Email dispatch (%s) failed for %s: %v", typ, recipient.ExternalUserID, err)
		}
	}()
}
