// api/notification.go
package api

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

// NotificationType defines the severity level of a notification
type NotificationType string

const (
	// ErrorNotification represents critical errors requiring immediate attention
	ErrorNotification NotificationType = "error"
	// WarningNotification represents potential issues that don't block operation
	WarningNotification NotificationType = "warning"
	// SuccessNotification represents successful operations
	SuccessNotification NotificationType = "success"
	// InfoNotification represents general status updates
	InfoNotification NotificationType = "info"
)

// NotificationPayload contains structured data sent to notification channels
type NotificationPayload struct {
	Type      NotificationType `json:"type"`
	Message   string           `json:"message"`
	Details   string           `json:"details,omitempty"`
	Timestamp string           `json:"timestamp"`
	Source    string           `json:"source"`
	Duration  string           `json:"duration,omitempty"`
}

// SendMailgunNotification delivers notification content via Mailgun's API
func SendMailgunNotification(payload NotificationPayload) error {
	mailgunAPIKey := os.Getenv("MAIL_API_KEY")
	mailgunDomain := os.Getenv("MAILGUN_DOMAIN")
	toEmail := os.Getenv("NOTIFICATION_EMAIL_TO")

	if mailgunAPIKey == "" || mailgunDomain == "" || toEmail == "" {
		return fmt.Errorf("missing required Mailgun environment variables")
	}

	fromEmail := fmt.Sprintf("BeezUp Override Editor <override-editor@%s>", mailgunDomain)

	var subject string
	switch payload.Type {
	case ErrorNotification:
		subject = fmt.Sprintf("🚨 [ERROR] Override Dispatch: %s", payload.Message)
	case WarningNotification:
		subject = fmt.Sprintf("⚠️ [WARNING] Override Dispatch: %s", payload.Message)
	case SuccessNotification:
		subject = fmt.Sprintf("✅ [SUCCESS] Override Dispatch: %s", payload.Message)
	default:
		subject = fmt.Sprintf("ℹ️ [INFO] Override Dispatch: %s", payload.Message)
	}

	styleClass := strings.ToLower(string(payload.Type))

	emailContent := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; line-height: 1.6; color: #333; margin: 0; padding: 0; }
    .container { max-width: 600px; margin: 0 auto; padding: 20px; }
    .header { padding: 15px; border-radius: 5px; margin-bottom: 20px; }
    .success { background-color: #f0fff4; border-left: 4px solid #48bb78; }
    .error { background-color: #fff5f5; border-left: 4px solid #f56565; }
    .warning { background-color: #fffaf0; border-left: 4px solid #ed8936; }
    .info { background-color: #ebf8ff; border-left: 4px solid #4299e1; }
    h2 { margin-top: 0; color: #2d3748; }
    .details { background-color: #f7fafc; padding: 15px; border-radius: 5px; white-space: pre-wrap; font-family: ui-monospace, SFMono-Regular, Menlo, Monaco, Consolas, monospace; font-size: 14px; overflow-x: auto; }
    .meta { color: #718096; font-size: 0.9em; margin-top: 20px; border-top: 1px solid #e2e8f0; padding-top: 15px; }
    .duration { font-weight: bold; color: #2d3748; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header %s">
      <h2>%s</h2>
    </div>

    <h3>Details:</h3>
    <div class="details">%s</div>

    <div class="meta">
      <p><strong>Time:</strong> %s</p>
      %s
      <p><strong>Source:</strong> %s</p>
      <p><em>This is an automated notification from the BeezUp override editor.</em></p>
    </div>
  </div>
</body>
</html>
	`,
		styleClass,
		payload.Message,
		payload.Details,
		payload.Timestamp,
		func() string {
			if payload.Duration != "" {
				return fmt.Sprintf("<p><strong>Duration:</strong> <span class=\"duration\">%s</span></p>", payload.Duration)
			}
			return ""
		}(),
		payload.Source)

	mailgunURL := fmt.Sprintf("https://api.mailgun.net/v3/%s/messages", mailgunDomain)

	formData := url.Values{}
	formData.Set("from", fromEmail)
	formData.Set("to", toEmail)
	formData.Set("subject", subject)
	formData.Set("html", emailContent)

	req, err := http.NewRequest("POST", mailgunURL, strings.NewReader(formData.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create email request: %v", err)
	}

	req.SetBasicAuth("api", mailgunAPIKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email notification: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("mailgun API returned error status: %d, body: %s", resp.StatusCode, string(body))
	}

	return nil
}

// NotifyDispatchResult sends the run summary email after a dispatch. A
// delivery failure is logged and swallowed; notifications never fail a
// batch.
func NotifyDispatchResult(logger *zap.Logger, catalogID string, summary DispatchSummary, duration time.Duration) {
	notifType := SuccessNotification
	message := fmt.Sprintf("%d products edited on catalog %s", summary.Successes, catalogID)
	if summary.Failures > 0 || summary.Errors > 0 {
		notifType = WarningNotification
		message = fmt.Sprintf("%d of %d products edited on catalog %s", summary.Successes, summary.Total, catalogID)
	}
	if summary.Successes == 0 && summary.Total > 0 {
		notifType = ErrorNotification
	}

	details := fmt.Sprintf(
		"Catalog: %s\nRows dispatched: %d\nSuccesses: %d\nFailures: %d\nErrors: %d",
		catalogID, summary.Total, summary.Successes, summary.Failures, summary.Errors,
	)

	payload := NotificationPayload{
		Type:      notifType,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().Format(time.RFC3339),
		Source:    "BeezUp Override Editor",
		Duration:  duration.Round(time.Second).String(),
	}

	if err := SendMailgunNotification(payload); err != nil {
		logger.Warn("failed to send dispatch notification", zap.Error(err))
	}
}
