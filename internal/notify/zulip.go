package notify

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ZulipSink posts messages to a Zulip stream via the REST API
// (POST /api/v1/messages, Basic auth with the bot's email and API key).
type ZulipSink struct {
	site   string
	email  string
	apiKey string
	stream string
	client *http.Client
	logger *slog.Logger
}

// NewZulipSink creates a sink for the given Zulip server and stream.
func NewZulipSink(site, email, apiKey, stream string, logger *slog.Logger) *ZulipSink {
	return &ZulipSink{
		site:   strings.TrimRight(site, "/"),
		email:  email,
		apiKey: apiKey,
		stream: stream,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// Send posts one stream message. Errors are logged, never propagated.
func (z *ZulipSink) Send(topic, content string) {
	form := url.Values{
		"type":    {"stream"},
		"to":      {z.stream},
		"topic":   {topic},
		"content": {content},
	}

	req, err := http.NewRequest(http.MethodPost, z.site+"/api/v1/messages", strings.NewReader(form.Encode()))
	if err != nil {
		z.logger.Warn("zulip request build failed", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(z.email, z.apiKey)

	resp, err := z.client.Do(req)
	if err != nil {
		z.logger.Warn("zulip send failed", "error", err)
		return
	}
	defer resp.Body.Close()

	var body struct {
		Result string `json:"result"`
		Msg    string `json:"msg"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		z.logger.Warn("zulip response unreadable", "status", resp.StatusCode, "error", err)
		return
	}
	if body.Result != "success" {
		z.logger.Warn("zulip rejected message", "status", resp.StatusCode, "msg", body.Msg)
	}
}
