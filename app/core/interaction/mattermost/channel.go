package mattermost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskpilot/app/pkg/types"
)

type Config struct {
	ServerURL    string
	BotToken     string
	PollInterval time.Duration
	// ChatIDs are the channels polled for new posts.
	ChatIDs       []string
	DefaultChatID string

	// Webhook mode listens for Mattermost outgoing webhooks instead of
	// (or in addition to) polling.
	WebhookEnabled bool
	WebhookPort    int
	WebhookPath    string
}

// Channel speaks the Mattermost v4 REST API: it posts replies, polls
// configured channels for new posts, and optionally accepts outgoing
// webhooks.
type Channel struct {
	cfg    Config
	id     string
	server *http.Server
	http   *http.Client

	botUserID   string
	botUsername string

	mu      sync.RWMutex
	handler func(types.Message)
	since   map[string]int64
}

func NewChannel(cfg Config) *Channel {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.WebhookPort <= 0 {
		cfg.WebhookPort = 8065
	}
	if strings.TrimSpace(cfg.WebhookPath) == "" {
		cfg.WebhookPath = "/webhooks/mattermost"
	}
	if !strings.HasPrefix(cfg.WebhookPath, "/") {
		cfg.WebhookPath = "/" + cfg.WebhookPath
	}
	cfg.ServerURL = strings.TrimRight(strings.TrimSpace(cfg.ServerURL), "/")
	return &Channel{
		cfg:   cfg,
		id:    "mattermost",
		http:  &http.Client{Timeout: 30 * time.Second},
		since: make(map[string]int64),
	}
}

func (c *Channel) ID() string {
	return c.id
}

func (c *Channel) Start(ctx context.Context, handler func(types.Message)) error {
	if c.cfg.ServerURL == "" {
		return fmt.Errorf("mattermost server url is required")
	}
	if strings.TrimSpace(c.cfg.BotToken) == "" {
		return fmt.Errorf("mattermost bot token is required")
	}

	c.mu.Lock()
	c.handler = handler
	c.mu.Unlock()

	if err := c.identify(ctx); err != nil {
		return fmt.Errorf("identify bot user: %w", err)
	}
	log.Printf("[Mattermost] Connected as @%s", c.botUsername)

	var wg sync.WaitGroup
	if c.cfg.WebhookEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.serveWebhook(ctx); err != nil {
				log.Printf("[Mattermost] Webhook server error: %v", err)
			}
		}()
	}

	if len(c.cfg.ChatIDs) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.pollLoop(ctx)
		}()
	} else if !c.cfg.WebhookEnabled {
		log.Println("[Mattermost] No poll channels and webhook disabled; only outbound sends will work")
	}

	wg.Wait()
	<-ctx.Done()
	return nil
}

func (c *Channel) Send(ctx context.Context, msg types.Message) error {
	chatID := strings.TrimSpace(msg.ChatID)
	if chatID == "" {
		chatID = strings.TrimSpace(c.cfg.DefaultChatID)
	}
	if chatID == "" {
		return fmt.Errorf("mattermost chat id is required")
	}
	payload := map[string]interface{}{
		"channel_id": chatID,
		"message":    msg.Content,
	}
	return c.call(ctx, http.MethodPost, "/api/v4/posts", payload, nil)
}

// identify resolves the token's own user, used to skip the bot's posts
// and to detect mentions.
func (c *Channel) identify(ctx context.Context) error {
	var me struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v4/users/me", nil, &me); err != nil {
		return err
	}
	if me.ID == "" {
		return fmt.Errorf("empty bot user id")
	}
	c.botUserID = me.ID
	c.botUsername = me.Username
	return nil
}

func (c *Channel) pollLoop(ctx context.Context) {
	// Only posts newer than startup are handled.
	now := time.Now().UnixMilli()
	c.mu.Lock()
	for _, chatID := range c.cfg.ChatIDs {
		c.since[chatID] = now
	}
	c.mu.Unlock()

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		for _, chatID := range c.cfg.ChatIDs {
			if err := c.pollChat(ctx, chatID); err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("[Mattermost] poll error chat=%s: %v", chatID, err)
			}
		}
	}
}

func (c *Channel) pollChat(ctx context.Context, chatID string) error {
	c.mu.RLock()
	since := c.since[chatID]
	handler := c.handler
	c.mu.RUnlock()

	var page postsPage
	path := fmt.Sprintf("/api/v4/channels/%s/posts?since=%d", chatID, since)
	if err := c.call(ctx, http.MethodGet, path, nil, &page); err != nil {
		return err
	}

	// Order holds newest first; walk it backwards so posts are handled
	// in the order they were written.
	for i := len(page.Order) - 1; i >= 0; i-- {
		post, ok := page.Posts[page.Order[i]]
		if !ok {
			continue
		}
		if post.CreateAt > since {
			since = post.CreateAt
		}
		if post.UserID == c.botUserID || strings.TrimSpace(post.Message) == "" {
			continue
		}
		if handler != nil {
			handler(c.toMessage(post))
		}
	}

	c.mu.Lock()
	c.since[chatID] = since
	c.mu.Unlock()
	return nil
}

func (c *Channel) toMessage(post post) types.Message {
	return types.Message{
		ID:        uuid.NewString(),
		Content:   post.Message,
		Role:      types.RoleUser,
		ChannelID: c.id,
		ChatID:    post.ChannelID,
		UserID:    post.UserID,
		RequestID: uuid.NewString(),
		Mention:   c.mentioned(post.Message),
	}
}

func (c *Channel) mentioned(text string) bool {
	if c.botUsername == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), "@"+strings.ToLower(c.botUsername))
}

func (c *Channel) serveWebhook(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc(c.cfg.WebhookPath, c.handleWebhook)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	c.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", c.cfg.WebhookPort),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[Mattermost] Shutdown error: %v", err)
		}
	}()

	log.Printf("[Mattermost] Webhook listening on :%d%s", c.cfg.WebhookPort, c.cfg.WebhookPath)
	err := c.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (c *Channel) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))

	if payload.UserID == c.botUserID || strings.TrimSpace(payload.Text) == "" {
		return
	}

	c.mu.RLock()
	handler := c.handler
	c.mu.RUnlock()
	if handler == nil {
		return
	}
	handler(types.Message{
		ID:        uuid.NewString(),
		Content:   payload.Text,
		Role:      types.RoleUser,
		ChannelID: c.id,
		ChatID:    payload.ChannelID,
		UserID:    payload.UserID,
		RequestID: uuid.NewString(),
		Mention:   c.mentioned(payload.Text),
	})
}

func (c *Channel) call(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.ServerURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.BotToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("mattermost api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return err
		}
	}
	return nil
}

type postsPage struct {
	Order []string        `json:"order"`
	Posts map[string]post `json:"posts"`
}

type post struct {
	ID        string `json:"id"`
	CreateAt  int64  `json:"create_at"`
	UserID    string `json:"user_id"`
	ChannelID string `json:"channel_id"`
	Message   string `json:"message"`
}

type webhookPayload struct {
	Token       string `json:"token"`
	ChannelID   string `json:"channel_id"`
	UserID      string `json:"user_id"`
	UserName    string `json:"user_name"`
	PostID      string `json:"post_id"`
	Text        string `json:"text"`
	TriggerWord string `json:"trigger_word"`
}
