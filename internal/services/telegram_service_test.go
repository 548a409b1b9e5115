package services

import (
	"strings"
	"testing"
)

func TestConvertToTelegramHTML(t *testing.T) {
	html := convertToTelegramHTML("**done** and `code`")
	if !strings.Contains(html, "<b>done</b>") {
		t.Errorf("Expected bold tag, got: %s", html)
	}
	if !strings.Contains(html, "<code>code</code>") {
		t.Errorf("Expected code tag, got: %s", html)
	}
}

func TestStripMarkdown(t *testing.T) {
	input := "## Heading\n**bold** and `code` plus [link](https://example.com)"
	out := stripMarkdown(input)

	for _, bad := range []string{"##", "**", "`", "]("} {
		if strings.Contains(out, bad) {
			t.Errorf("Expected %q to be stripped, got: %s", bad, out)
		}
	}
	if !strings.Contains(out, "link (https://example.com)") {
		t.Errorf("Expected link text with URL, got: %s", out)
	}
}

func TestTelegramService_WebhookSecretIsRandom(t *testing.T) {
	first, err := NewTelegramService("token", "https://example.com")
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	second, _ := NewTelegramService("token", "https://example.com")

	if len(first.WebhookSecret()) != 64 {
		t.Errorf("Expected 64 hex chars, got %d", len(first.WebhookSecret()))
	}
	if first.WebhookSecret() == second.WebhookSecret() {
		t.Errorf("Webhook secrets must differ per instance")
	}
	if !strings.Contains(first.WebhookURL(), first.WebhookSecret()) {
		t.Errorf("Webhook URL must embed the secret: %s", first.WebhookURL())
	}
}

func TestTelegramService_IsLocalhost(t *testing.T) {
	local, _ := NewTelegramService("token", "http://localhost:3001")
	if !local.IsLocalhost() {
		t.Errorf("Expected localhost detection for %s", "http://localhost:3001")
	}

	public, _ := NewTelegramService("token", "https://standup.example.com")
	if public.IsLocalhost() {
		t.Errorf("Expected public URL to not be localhost")
	}
}
