package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/leonid-shevtsov/telegold"
	"github.com/yuin/goldmark"
	"golang.org/x/time/rate"

	"standup/internal/models"
)

// Telegram Markdown converter using telegold (goldmark with Telegram HTML renderer)
var telegramMarkdownConverter = goldmark.New(goldmark.WithRenderer(telegold.NewRenderer()))

// TelegramService talks to the Telegram Bot API for the status bot. It sends
// replies only to the chat the command came from; other participants never
// see a submission until the meeting is closed and published.
type TelegramService struct {
	botToken      string
	webhookSecret string
	baseURL       string
	httpClient    *http.Client
	pollingClient *http.Client // longer timeout for long polling
	sendLimiter   *rate.Limiter

	messageHandler func(message *models.TelegramMessage)
	stopChan       chan struct{}
}

// NewTelegramService creates a Telegram service for a single bot token
func NewTelegramService(botToken, baseURL string) (*TelegramService, error) {
	secret, err := generateWebhookSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to generate webhook secret: %w", err)
	}

	return &TelegramService{
		botToken:      botToken,
		webhookSecret: secret,
		baseURL:       baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		pollingClient: &http.Client{
			Timeout: 35 * time.Second, // long polling timeout
		},
		// Telegram allows ~30 messages/second bot-wide; stay well under it
		sendLimiter: rate.NewLimiter(rate.Limit(20), 5),
		stopChan:    make(chan struct{}),
	}, nil
}

// generateWebhookSecret generates a secure random webhook secret
func generateWebhookSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// WebhookSecret returns the secret path segment for the webhook endpoint
func (s *TelegramService) WebhookSecret() string {
	return s.webhookSecret
}

// SetMessageHandler sets the callback for processing incoming messages
func (s *TelegramService) SetMessageHandler(handler func(message *models.TelegramMessage)) {
	s.messageHandler = handler
}

// WebhookURL returns the public webhook URL registered with Telegram
func (s *TelegramService) WebhookURL() string {
	return fmt.Sprintf("%s/api/telegram/webhook/%s", s.baseURL, s.webhookSecret)
}

// IsLocalhost reports whether the base URL cannot receive webhooks
func (s *TelegramService) IsLocalhost() bool {
	return strings.Contains(s.baseURL, "localhost") || strings.Contains(s.baseURL, "127.0.0.1")
}

// Start registers the webhook with Telegram, or falls back to long polling
// when running on localhost.
func (s *TelegramService) Start() {
	if s.IsLocalhost() {
		log.Println("📡 [TELEGRAM] Long polling mode enabled (localhost detected)")
		s.deleteWebhook()
		go s.runPoller()
		return
	}

	if err := s.setWebhook(s.WebhookURL()); err != nil {
		log.Printf("⚠️ [TELEGRAM] Failed to register webhook: %v", err)
		return
	}
	log.Printf("📡 [TELEGRAM] Webhook registered: %s", s.WebhookURL())
}

// Stop shuts down the polling loop if one is running
func (s *TelegramService) Stop() {
	close(s.stopChan)
}

// GetBotInfo verifies the bot token against the Telegram getMe API
func (s *TelegramService) GetBotInfo(ctx context.Context) (username, name string, err error) {
	url := fmt.Sprintf("https://api.telegram.org/bot%s/getMe", s.botToken)
	req, _ := http.NewRequestWithContext(ctx, "GET", url, nil)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("failed to connect to Telegram: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
		Result      struct {
			Username  string `json:"username"`
			FirstName string `json:"first_name"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", "", fmt.Errorf("failed to decode response: %w", err)
	}
	if !result.OK {
		return "", "", fmt.Errorf("Telegram API error: %s", result.Description)
	}
	return result.Result.Username, result.Result.FirstName, nil
}

// setWebhook registers the webhook URL with Telegram
func (s *TelegramService) setWebhook(webhookURL string) error {
	url := fmt.Sprintf("https://api.telegram.org/bot%s/setWebhook", s.botToken)

	payload := map[string]interface{}{
		"url":             webhookURL,
		"allowed_updates": []string{"message"},
	}
	body, _ := json.Marshal(payload)
	req, _ := http.NewRequest("POST", url, bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to Telegram: %w", err)
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)

	if ok, _ := result["ok"].(bool); !ok {
		description, _ := result["description"].(string)
		return fmt.Errorf("failed to set webhook: %s", description)
	}
	return nil
}

// deleteWebhook removes any registered webhook (required before polling)
func (s *TelegramService) deleteWebhook() {
	url := fmt.Sprintf("https://api.telegram.org/bot%s/deleteWebhook", s.botToken)
	req, _ := http.NewRequest("POST", url, nil)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.Printf("⚠️ [TELEGRAM] Failed to delete webhook: %v", err)
		return
	}
	resp.Body.Close()
}

// SendMessage sends a markdown-formatted reply to a chat. The markdown is
// converted to Telegram HTML via telegold; if Telegram rejects the HTML the
// message is retried as plain text.
func (s *TelegramService) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := s.sendLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("send rate limiter: %w", err)
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", s.botToken)

	payload := map[string]interface{}{
		"chat_id":    chatID,
		"text":       convertToTelegramHTML(text),
		"parse_mode": "HTML",
	}
	body, _ := json.Marshal(payload)

	req, _ := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == 200 {
		return nil
	}

	bodyBytes, _ := io.ReadAll(resp.Body)
	errStr := string(bodyBytes)

	if strings.Contains(errStr, "can't parse entities") {
		log.Printf("⚠️ [TELEGRAM] HTML parsing failed, retrying without parse_mode")

		payload = map[string]interface{}{
			"chat_id": chatID,
			"text":    stripMarkdown(text),
		}
		body, _ = json.Marshal(payload)

		req, _ = http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		resp2, err := s.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to send Telegram message (plain): %w", err)
		}
		defer resp2.Body.Close()

		if resp2.StatusCode != 200 {
			bodyBytes2, _ := io.ReadAll(resp2.Body)
			return fmt.Errorf("Telegram API error (plain): %s", string(bodyBytes2))
		}
		return nil
	}

	return fmt.Errorf("Telegram API error: %s", errStr)
}

// convertToTelegramHTML converts standard Markdown to Telegram-compatible HTML
func convertToTelegramHTML(text string) string {
	var buf bytes.Buffer
	if err := telegramMarkdownConverter.Convert([]byte(text), &buf); err != nil {
		log.Printf("⚠️ [TELEGRAM] Markdown conversion failed: %v", err)
		return text
	}
	return buf.String()
}

// stripMarkdown removes Markdown formatting for plain text fallback
func stripMarkdown(text string) string {
	text = strings.ReplaceAll(text, "**", "")
	text = strings.ReplaceAll(text, "__", "")
	text = strings.ReplaceAll(text, "`", "")
	headerPattern := regexp.MustCompile(`(?m)^#{1,6}\s+`)
	text = headerPattern.ReplaceAllString(text, "")
	linkPattern := regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	text = linkPattern.ReplaceAllString(text, "$1 ($2)")
	return text
}

// runPoller runs the long polling loop for localhost development
func (s *TelegramService) runPoller() {
	log.Println("📡 [TELEGRAM] Polling loop started")

	var lastOffset int64
	for {
		select {
		case <-s.stopChan:
			log.Println("📡 [TELEGRAM] Poller stopped")
			return
		default:
			updates, err := s.getUpdates(lastOffset)
			if err != nil {
				log.Printf("⚠️ [TELEGRAM] Error getting updates: %v", err)
				time.Sleep(5 * time.Second)
				continue
			}

			for _, update := range updates {
				if update.UpdateID >= lastOffset {
					lastOffset = update.UpdateID + 1
				}
				if update.Message != nil && s.messageHandler != nil {
					s.messageHandler(update.Message)
				}
			}
		}
	}
}

// getUpdates fetches updates using long polling
func (s *TelegramService) getUpdates(offset int64) ([]*models.TelegramUpdate, error) {
	url := fmt.Sprintf("https://api.telegram.org/bot%s/getUpdates?timeout=30&allowed_updates=[\"message\"]", s.botToken)
	if offset > 0 {
		url += fmt.Sprintf("&offset=%d", offset)
	}

	req, _ := http.NewRequest("GET", url, nil)

	resp, err := s.pollingClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get updates: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		OK     bool                     `json:"ok"`
		Result []*models.TelegramUpdate `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if !result.OK {
		return nil, fmt.Errorf("Telegram API returned not OK")
	}

	return result.Result, nil
}
