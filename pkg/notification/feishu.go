package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"agentcoord/internal/model"
	"agentcoord/pkg/config"
	"agentcoord/pkg/logger"
)

// FeishuNotifier sends notifications to Feishu (Lark)
type FeishuNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewFeishuNotifier creates a new Feishu notifier
func NewFeishuNotifier() *FeishuNotifier {
	// Priority: config file > environment variable
	var webhookURL string
	if config.GlobalConfig != nil && config.GlobalConfig.Notification.FeishuWebhookURL != "" {
		webhookURL = config.GlobalConfig.Notification.FeishuWebhookURL
	} else {
		webhookURL = os.Getenv("FEISHU_WEBHOOK_URL")
	}

	if webhookURL == "" {
		logger.Warn("Feishu webhook URL not configured, scaling notifications will be disabled")
	}

	return &FeishuNotifier{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Enabled reports whether a webhook URL is configured
func (f *FeishuNotifier) Enabled() bool {
	return f.webhookURL != ""
}

// SendScalingNotification announces a scaling decision
func (f *FeishuNotifier) SendScalingNotification(ctx context.Context, decision *model.ScalingDecision) error {
	if f.webhookURL == "" {
		return nil
	}

	text := fmt.Sprintf("Pool scaling decision\nAction: %s\nAgents: %d\nReason: %s\nPool size: %d -> %d\nEvaluated: %s",
		decision.Action,
		decision.N,
		decision.Reason,
		decision.PoolSizeBefore,
		decision.PoolSizeAfter,
		decision.EvaluatedAt.Format(time.RFC3339),
	)

	payload := map[string]interface{}{
		"msg_type": "text",
		"content": map[string]string{
			"text": text,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("notification webhook returned status %d", resp.StatusCode)
	}

	logger.DebugCtx(ctx, "scaling notification sent, action: %s, n: %d", decision.Action, decision.N)
	return nil
}
