package services

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/creativetemmy/pair2pass-sub000/models"
)

func TestRenderEmail(t *testing.T) {
	subject, body, err := RenderEmail(models.NotifMatchRequest, map[string]string{
		"requester": "Ada",
		"subject":   "Linear Algebra",
		"duration":  "45",
	})
	if err != nil {
		t.Fatalf("RenderEmail: %v", err)
	}
	if subject == "" {
		t.Error("subject should not be empty")
	}
	for _, want := range []string{"Ada", "Linear Algebra", "45"} {
		if !strings.Contains(body, want) {
			t.Errorf("body %q missing %q", body, want)
		}
	}
}

func TestRenderEmailMissingDataField(t *testing.T) {
	// missingkey=zero: absent fields render empty, not error
	_, body, err := RenderEmail(models.NotifTierUp, map[string]string{})
	if err != nil {
		t.Fatalf("RenderEmail with empty data: %v", err)
	}
	if strings.Contains(body, "{{") {
		t.Errorf("body %q contains unrendered template syntax", body)
	}
}

func TestRenderEmailUnknownType(t *testing.T) {
	if _, _, err := RenderEmail(models.NotificationType("no_such_kind"), nil); err == nil {
		t.Error("expected error for unknown notification type")
	}
}

func TestRenderEmailAllTypesHaveTemplates(t *testing.T) {
	for _, typ := range []models.NotificationType{
		models.NotifMatchRequest, models.NotifMatchFound, models.NotifMatchAccepted,
		models.NotifMatchRejected, models.NotifMatchExpired, models.NotifSessionReady,
		models.NotifSessionReminder, models.NotifSessionComplete, models.NotifSessionCancelled,
		models.NotifMilestoneReached, models.NotifTierUp, models.NotifBadgeUnlocked,
		models.NotifReviewReceived,
	} {
		if _, _, err := RenderEmail(typ, map[string]string{}); err != nil {
			t.Errorf("RenderEmail(%s): %v", typ, err)
		}
	}
}

func TestSendSkipsUnverifiedRecipients(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := NewEmailClient(server.URL, "test-key", "Pair2Pass <noreply@pair2pass.app>")

	recipients := []*models.Profile{
		nil,
		{ExternalUserID: "u1", Email: "", EmailVerified: true},
		{ExternalUserID: "u2", Email: "u2@example.com", EmailVerified: false},
	}
	for _, rec := range recipients {
		if err := client.Send(rec, models.NotifSessionComplete, map[string]string{"subject": "Calculus"}); err != nil {
			t.Errorf("Send should silently skip, got %v", err)
		}
	}
	if called {
		t.Error("email API should not be called for skipped recipients")
	}
}

func TestSendDelivers(t *testing.T) {
	var gotAuth string
	var gotPayload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/emails" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotPayload)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewEmailClient(server.URL, "test-key", "Pair2Pass <noreply@pair2pass.app>")
	recipient := &models.Profile{
		ExternalUserID: "u1",
		Email:          "ada@example.com",
		EmailVerified:  true,
	}

	if err := client.Send(recipient, models.NotifSessionComplete, map[string]string{"subject": "Calculus"}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q, want Bearer test-key", gotAuth)
	}
	to, _ := gotPayload["to"].([]any)
	if len(to) != 1 || to[0] != "ada@example.com" {
		t.Errorf("to = %v, want [ada@example.com]", gotPayload["to"])
	}
	if text, _ := gotPayload["text"].(string); !strings.Contains(text, "Calculus") {
		t.Errorf("text %q missing rendered subject name", text)
	}
}

func TestSendSurfacesAPIErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"invalid recipient"}`))
	}))
	defer server.Close()

	client := NewEmailClient(server.URL, "test-key", "Pair2Pass <noreply@pair2pass.app>")
	recipient := &models.Profile{ExternalUserID: "u1", Email: "ada@example.com", EmailVerified: true}

	err := client.Send(recipient, models.NotifSessionComplete, map[string]string{"subject": "Calculus"})
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}
	if !strings.Contains(err.Error(), "422") {
		t.Errorf("error %q should include status code", err)
	}
}
