package notify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrNotConfigured is returned when the selected platform has no webhook URL.
var ErrNotConfigured = errors.New("webhook not configured")

// DefaultTimeout bounds a single outbound robot call.
const DefaultTimeout = 10 * time.Second

// Notifier delivers one formatted message to a chat robot.
type Notifier interface {
	// Send posts the message. A nil error means the robot accepted it.
	Send(ctx context.Context, title, markdown string) error
	Platform() Platform
}

// Compile-time interface guards.
var (
	_ Notifier = (*DingTalkNotifier)(nil)
	_ Notifier = (*WeChatNotifier)(nil)
	_ Notifier = (*FeishuNotifier)(nil)
)

// robotResponse covers the reply shapes of all three robot APIs.
type robotResponse struct {
	ErrCode    *int   `json:"errcode"`
	ErrMsg     string `json:"errmsg"`
	Code       *int   `json:"code"`
	StatusCode *int   `json:"StatusCode"`
	Msg        string `json:"msg"`
}

func newRestyClient(timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "cctv-allin-notify/1.0")
}

// post sends body and decodes the robot's JSON reply. Transport errors and
// non-2xx statuses are returned as errors.
func post(ctx context.Context, client *resty.Client, url string, query map[string]string, body any) (*robotResponse, error) {
	req := client.R().SetContext(ctx).SetBody(body)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	resp, err := req.Post(url)
	if err != nil {
		return nil, fmt.Errorf("POST: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("POST: status %d", resp.StatusCode())
	}
	var out robotResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func intIs(p *int, want int) bool {
	return p != nil && *p == want
}

// DingTalkConfig configures a DingTalk custom robot.
type DingTalkConfig struct {
	Webhook   string
	Secret    string //nolint:gosec // G101: config field name, not a credential
	AtMobiles []string
	AtAll     bool
	Timeout   time.Duration
}

// DingTalkNotifier posts markdown messages to a DingTalk robot.
type DingTalkNotifier struct {
	client *resty.Client
	cfg    DingTalkConfig
	now    func() time.Time
}

// NewDingTalkNotifier creates a DingTalk notifier.
func NewDingTalkNotifier(cfg DingTalkConfig) *DingTalkNotifier {
	return &DingTalkNotifier{client: newRestyClient(cfg.Timeout), cfg: cfg, now: time.Now}
}

func (n *DingTalkNotifier) Platform() Platform { return PlatformDingTalk }

func (n *DingTalkNotifier) Send(ctx context.Context, title, markdown string) error {
	if n.cfg.Webhook == "" {
		return fmt.Errorf("dingtalk: %w", ErrNotConfigured)
	}
	at := map[string]any{"isAtAll": n.cfg.AtAll}
	if len(n.cfg.AtMobiles) > 0 {
		at["atMobiles"] = n.cfg.AtMobiles
	}
	body := map[string]any{
		"msgtype": "markdown",
		"markdown": map[string]string{
			"title": title,
			"text":  markdown,
		},
		"at": at,
	}

	var query map[string]string
	if n.cfg.Secret != "" {
		ts := fmt.Sprintf("%d", n.now().UnixMilli())
		query = map[string]string{
			"timestamp": ts,
			"sign":      DingTalkSign(ts, n.cfg.Secret),
		}
	}

	resp, err := post(ctx, n.client, n.cfg.Webhook, query, body)
	if err != nil {
		return fmt.Errorf("dingtalk: %w", err)
	}
	if !intIs(resp.ErrCode, 0) {
		return fmt.Errorf("dingtalk: errcode %v: %s", derefOr(resp.ErrCode, -1), resp.ErrMsg)
	}
	return nil
}

// DingTalkSign computes the robot signature for a millisecond timestamp:
// base64(HMAC-SHA256(secret, timestamp + "\n" + secret)).
func DingTalkSign(timestamp, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + "\n" + secret))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// WeChatNotifier posts markdown messages to a WeChat Work group robot.
type WeChatNotifier struct {
	client  *resty.Client
	webhook string
}

// NewWeChatNotifier creates a WeChat Work notifier.
func NewWeChatNotifier(webhook string, timeout time.Duration) *WeChatNotifier {
	return &WeChatNotifier{client: newRestyClient(timeout), webhook: webhook}
}

func (n *WeChatNotifier) Platform() Platform { return PlatformWeChat }

// Send ignores title; WeChat markdown messages have no separate title.
func (n *WeChatNotifier) Send(ctx context.Context, _, markdown string) error {
	if n.webhook == "" {
		return fmt.Errorf("wechat: %w", ErrNotConfigured)
	}
	body := map[string]any{
		"msgtype":  "markdown",
		"markdown": map[string]string{"content": markdown},
	}
	resp, err := post(ctx, n.client, n.webhook, nil, body)
	if err != nil {
		return fmt.Errorf("wechat: %w", err)
	}
	if !intIs(resp.ErrCode, 0) {
		return fmt.Errorf("wechat: errcode %v: %s", derefOr(resp.ErrCode, -1), resp.ErrMsg)
	}
	return nil
}

// FeishuConfig configures a Feishu custom bot.
type FeishuConfig struct {
	Webhook string
	Secret  string //nolint:gosec // G101: config field name, not a credential
	Timeout time.Duration
}

// FeishuNotifier posts interactive cards to a Feishu bot.
type FeishuNotifier struct {
	client *resty.Client
	cfg    FeishuConfig
	now    func() time.Time
}

// NewFeishuNotifier creates a Feishu notifier.
func NewFeishuNotifier(cfg FeishuConfig) *FeishuNotifier {
	return &FeishuNotifier{client: newRestyClient(cfg.Timeout), cfg: cfg, now: time.Now}
}

func (n *FeishuNotifier) Platform() Platform { return PlatformFeishu }

func (n *FeishuNotifier) Send(ctx context.Context, title, markdown string) error {
	if n.cfg.Webhook == "" {
		return fmt.Errorf("feishu: %w", ErrNotConfigured)
	}
	body := map[string]any{
		"msg_type": "interactive",
		"card": map[string]any{
			"config": map[string]any{"wide_screen_mode": true},
			"header": map[string]any{
				"title": map[string]string{"tag": "plain_text", "content": title},
			},
			"elements": []any{
				map[string]any{
					"tag":  "div",
					"text": map[string]string{"tag": "lark_md", "content": markdown},
				},
			},
		},
	}
	if n.cfg.Secret != "" {
		ts := fmt.Sprintf("%d", n.now().Unix())
		body["timestamp"] = ts
		body["sign"] = FeishuSign(ts, n.cfg.Secret)
	}

	resp, err := post(ctx, n.client, n.cfg.Webhook, nil, body)
	if err != nil {
		return fmt.Errorf("feishu: %w", err)
	}
	if !intIs(resp.StatusCode, 0) && !intIs(resp.Code, 0) {
		return fmt.Errorf("feishu: code %v: %s", derefOr(resp.Code, -1), resp.Msg)
	}
	return nil
}

// FeishuSign computes the bot signature for a second timestamp: the
// HMAC-SHA256 of an empty message keyed by timestamp + "\n" + secret.
func FeishuSign(timestamp, secret string) string {
	mac := hmac.New(sha256.New, []byte(timestamp+"\n"+secret))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func derefOr(p *int, fallback int) int {
	if p == nil {
		return fallback
	}
	return *p
}
