package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

// robotServer replies with body and records the last request.
func robotServer(t *testing.T, status int, body string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.query = r.URL.Query()
		captured.header = r.Header
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &captured.body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

type capturedRequest struct {
	query  url.Values
	header http.Header
	body   map[string]any
}

func TestDingTalkNotifier_SendSuccess(t *testing.T) {
	srv, req := robotServer(t, http.StatusOK, `{"errcode":0,"errmsg":"ok"}`)

	n := NewDingTalkNotifier(DingTalkConfig{
		Webhook:   srv.URL + "/robot/send?access_token=abc",
		AtMobiles: []string{"13800000000"},
	})
	if err := n.Send(context.Background(), "Prometheus Alert", "#### body"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if got := req.body["msgtype"]; got != "markdown" {
		t.Errorf("msgtype = %v, want markdown", got)
	}
	md, _ := req.body["markdown"].(map[string]any)
	if md["title"] != "Prometheus Alert" || md["text"] != "#### body" {
		t.Errorf("markdown = %v", md)
	}
	at, _ := req.body["at"].(map[string]any)
	if mobiles, _ := at["atMobiles"].([]any); len(mobiles) != 1 {
		t.Errorf("atMobiles = %v, want one entry", at["atMobiles"])
	}
	if got := req.query.Get("access_token"); got != "abc" {
		t.Errorf("access_token = %q, want abc", got)
	}
	if req.query.Has("sign") {
		t.Error("sign query param set without a secret")
	}
	if got := req.header.Get("Content-Type"); !strings.HasPrefix(got, "application/json") {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
}

func TestDingTalkNotifier_SendSignsWithSecret(t *testing.T) {
	srv, req := robotServer(t, http.StatusOK, `{"errcode":0}`)

	n := NewDingTalkNotifier(DingTalkConfig{Webhook: srv.URL + "?access_token=abc", Secret: "SECxyz"})
	n.now = func() time.Time { return time.UnixMilli(1700000000123) }

	if err := n.Send(context.Background(), "t", "m"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := req.query.Get("timestamp"); got != "1700000000123" {
		t.Errorf("timestamp = %q, want 1700000000123", got)
	}
	if got, want := req.query.Get("sign"), DingTalkSign("1700000000123", "SECxyz"); got != want {
		t.Errorf("sign = %q, want %q", got, want)
	}
	if got := req.query.Get("access_token"); got != "abc" {
		t.Errorf("access_token = %q, want abc", got)
	}
}

func TestDingTalkNotifier_SendAPIError(t *testing.T) {
	srv, _ := robotServer(t, http.StatusOK, `{"errcode":310000,"errmsg":"keywords not in content"}`)

	err := NewDingTalkNotifier(DingTalkConfig{Webhook: srv.URL}).Send(context.Background(), "t", "m")
	if err == nil {
		t.Fatal("expected error for non-zero errcode")
	}
	if !strings.Contains(err.Error(), "310000") {
		t.Errorf("error %q does not carry errcode", err)
	}
}

func TestDingTalkNotifier_SendHTTPError(t *testing.T) {
	srv, _ := robotServer(t, http.StatusInternalServerError, `oops`)

	err := NewDingTalkNotifier(DingTalkConfig{Webhook: srv.URL}).Send(context.Background(), "t", "m")
	if err == nil || !strings.Contains(err.Error(), "status 500") {
		t.Errorf("error = %v, want status 500", err)
	}
}

func TestDingTalkNotifier_SendNotConfigured(t *testing.T) {
	err := NewDingTalkNotifier(DingTalkConfig{}).Send(context.Background(), "t", "m")
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("error = %v, want ErrNotConfigured", err)
	}
}

func TestDingTalkNotifier_SendTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(`{"errcode":0}`))
	}))
	defer srv.Close()

	n := NewDingTalkNotifier(DingTalkConfig{Webhook: srv.URL, Timeout: 50 * time.Millisecond})
	if err := n.Send(context.Background(), "t", "m"); err == nil {
		t.Error("expected timeout error, got nil")
	}
}

func TestWeChatNotifier_Send(t *testing.T) {
	srv, req := robotServer(t, http.StatusOK, `{"errcode":0,"errmsg":"ok"}`)

	if err := NewWeChatNotifier(srv.URL, time.Second).Send(context.Background(), "ignored", "**body**"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	md, _ := req.body["markdown"].(map[string]any)
	if md["content"] != "**body**" {
		t.Errorf("markdown.content = %v, want **body**", md["content"])
	}
}

func TestWeChatNotifier_SendAPIError(t *testing.T) {
	srv, _ := robotServer(t, http.StatusOK, `{"errcode":93000,"errmsg":"invalid webhook url"}`)

	if err := NewWeChatNotifier(srv.URL, time.Second).Send(context.Background(), "", "m"); err == nil {
		t.Error("expected error for non-zero errcode")
	}
}

func TestFeishuNotifier_SendSuccessCodes(t *testing.T) {
	for _, body := range []string{`{"StatusCode":0,"StatusMessage":"success"}`, `{"code":0,"msg":"success"}`} {
		srv, req := robotServer(t, http.StatusOK, body)

		if err := NewFeishuNotifier(FeishuConfig{Webhook: srv.URL}).Send(context.Background(), "Title", "content"); err != nil {
			t.Errorf("Send with reply %s: %v", body, err)
			continue
		}
		if req.body["msg_type"] != "interactive" {
			t.Errorf("msg_type = %v, want interactive", req.body["msg_type"])
		}
		card, _ := req.body["card"].(map[string]any)
		header, _ := card["header"].(map[string]any)
		title, _ := header["title"].(map[string]any)
		if title["content"] != "Title" {
			t.Errorf("card title = %v, want Title", title["content"])
		}
	}
}

func TestFeishuNotifier_SendRejected(t *testing.T) {
	srv, _ := robotServer(t, http.StatusOK, `{"code":19021,"msg":"sign match fail or timestamp is not within one hour from current time"}`)

	err := NewFeishuNotifier(FeishuConfig{Webhook: srv.URL}).Send(context.Background(), "t", "m")
	if err == nil || !strings.Contains(err.Error(), "19021") {
		t.Errorf("error = %v, want code 19021", err)
	}
}

func TestFeishuNotifier_SendSignsWithSecret(t *testing.T) {
	srv, req := robotServer(t, http.StatusOK, `{"code":0}`)

	n := NewFeishuNotifier(FeishuConfig{Webhook: srv.URL, Secret: "s3cret"})
	n.now = func() time.Time { return time.Unix(1700000000, 0) }

	if err := n.Send(context.Background(), "t", "m"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if req.body["timestamp"] != "1700000000" {
		t.Errorf("timestamp = %v, want 1700000000", req.body["timestamp"])
	}
	if got, want := req.body["sign"], FeishuSign("1700000000", "s3cret"); got != want {
		t.Errorf("sign = %v, want %v", got, want)
	}
}

func TestSignatures_DifferBySecret(t *testing.T) {
	if DingTalkSign("1", "a") == DingTalkSign("1", "b") {
		t.Error("DingTalkSign ignores secret")
	}
	if FeishuSign("1", "a") == FeishuSign("1", "b") {
		t.Error("FeishuSign ignores secret")
	}
	if DingTalkSign("1", "a") != DingTalkSign("1", "a") {
		t.Error("DingTalkSign is not deterministic")
	}
}
