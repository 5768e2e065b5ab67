package gateway

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"taskpilot/app/core/dispatch"
	"taskpilot/app/pkg/types"
)

// DefaultGateway connects channels to the bot. Every inbound message
// is handed to the dispatcher under its conversation key, so one
// conversation's messages are processed strictly in arrival order
// while different conversations run in parallel.
type DefaultGateway struct {
	bot        types.Bot
	channels   map[string]types.Channel
	dispatcher *dispatch.Dispatcher
	mu         sync.RWMutex
	tracer     TraceRecorder

	processedMessages uint64
	droppedMessages   uint64
	lastMessageUnix   atomic.Int64
	startedUnix       atomic.Int64
}

type HealthStatus struct {
	Started            bool           `json:"started"`
	StartedAt          time.Time      `json:"started_at,omitempty"`
	RegisteredChannels []string       `json:"registered_channels"`
	BotName            string         `json:"bot_name"`
	ProcessedMessages  uint64         `json:"processed_messages"`
	DroppedMessages    uint64         `json:"dropped_messages"`
	LastMessageAt      time.Time      `json:"last_message_at,omitempty"`
	Dispatch           dispatch.Stats `json:"dispatch"`
}

func NewGateway(bot types.Bot, dispatcher *dispatch.Dispatcher) *DefaultGateway {
	return &DefaultGateway{
		bot:        bot,
		channels:   make(map[string]types.Channel),
		dispatcher: dispatcher,
	}
}

func (g *DefaultGateway) RegisterChannel(c types.Channel) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.channels[c.ID()] = c
	log.Printf("[Gateway] Registered channel: %s", c.ID())
}

func (g *DefaultGateway) SetTraceRecorder(tracer TraceRecorder) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tracer = tracer
}

// Start launches every registered channel and blocks until all of them
// return, which normally happens when ctx is cancelled.
func (g *DefaultGateway) Start(ctx context.Context) error {
	var wg sync.WaitGroup
	g.startedUnix.Store(time.Now().Unix())

	handler := func(msg types.Message) {
		atomic.AddUint64(&g.processedMessages, 1)
		g.lastMessageUnix.Store(time.Now().Unix())
		log.Printf("[Gateway] Received message channel=%s user=%s chat=%s", msg.ChannelID, msg.UserID, msg.ChatID)
		g.trace(msg, "inbound_received", "ok", "")

		key := conversationKey(msg)
		err := g.dispatcher.Submit(key, func() {
			if err := g.processAndReply(ctx, msg); err != nil {
				log.Printf("[Gateway] Processing failed: %v", err)
				_ = g.sendErrorReply(ctx, msg, "Error: "+err.Error())
			}
		})
		if err != nil {
			atomic.AddUint64(&g.droppedMessages, 1)
			g.trace(msg, "dispatch_submit", "error", err.Error())
			log.Printf("[Gateway] Dispatch submit failed key=%s: %v", key, err)
			_ = g.sendErrorReply(ctx, msg, "I'm handling too many messages from this conversation. Please try again shortly.")
		}
	}

	g.mu.RLock()
	for _, c := range g.channels {
		wg.Add(1)
		go func(ch types.Channel) {
			defer wg.Done()
			if err := ch.Start(ctx, handler); err != nil {
				log.Printf("[Gateway] Channel %s error: %v", ch.ID(), err)
				if ctx.Err() == nil {
					g.trace(types.Message{ChannelID: ch.ID()}, "channel_disconnected", "error", err.Error())
				}
			}
		}(c)
	}
	g.mu.RUnlock()

	log.Println("[Gateway] Started all channels")
	wg.Wait()
	return nil
}

func (g *DefaultGateway) processAndReply(ctx context.Context, msg types.Message) error {
	response, err := g.bot.Process(ctx, msg)
	if err != nil {
		g.trace(msg, "bot_process", "error", err.Error())
		return fmt.Errorf("bot process: %w", err)
	}
	g.trace(msg, "bot_process", "ok", "")

	// An empty reply means the bot chose to stay silent.
	if strings.TrimSpace(response.Content) == "" {
		return nil
	}

	channel, exists := g.channelByID(msg.ChannelID)
	if !exists {
		g.trace(msg, "deliver_reply", "error", "channel not found for reply")
		return fmt.Errorf("channel not found for reply: %s", msg.ChannelID)
	}

	normalizeReply(&response, msg)
	if err := channel.Send(ctx, response); err != nil {
		g.trace(response, "deliver_reply", "error", err.Error())
		return fmt.Errorf("send reply: %w", err)
	}
	g.trace(response, "deliver_reply", "ok", "")
	return nil
}

func (g *DefaultGateway) sendErrorReply(ctx context.Context, msg types.Message, reason string) error {
	channel, exists := g.channelByID(msg.ChannelID)
	if !exists {
		return fmt.Errorf("channel not found for reply: %s", msg.ChannelID)
	}
	response := types.Message{
		ID:        "resp-" + msg.ID,
		Content:   reason,
		Role:      types.RoleAssistant,
		ChannelID: msg.ChannelID,
		ChatID:    msg.ChatID,
		UserID:    msg.UserID,
		RequestID: msg.RequestID,
	}
	if err := channel.Send(ctx, response); err != nil {
		g.trace(response, "deliver_error_reply", "error", err.Error())
		return err
	}
	g.trace(response, "deliver_error_reply", "ok", "")
	return nil
}

// DeliverDirect sends unsolicited content to a chat, bypassing the
// bot. Scheduled reports use this.
func (g *DefaultGateway) DeliverDirect(ctx context.Context, channelID, chatID, content string) error {
	channelID = strings.TrimSpace(channelID)
	chatID = strings.TrimSpace(chatID)
	if channelID == "" {
		return fmt.Errorf("channel id is required")
	}
	if chatID == "" {
		return fmt.Errorf("chat id is required")
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("delivery content is required")
	}

	channel, exists := g.channelByID(channelID)
	if !exists {
		return fmt.Errorf("channel not found: %s", channelID)
	}

	msg := types.Message{
		ID:        "sched-" + strconv.FormatInt(time.Now().UnixNano(), 10),
		Content:   content,
		Role:      types.RoleAssistant,
		ChannelID: channelID,
		ChatID:    chatID,
	}
	if err := channel.Send(ctx, msg); err != nil {
		g.trace(msg, "deliver_direct", "error", err.Error())
		return err
	}
	g.trace(msg, "deliver_direct", "ok", "")
	return nil
}

func (g *DefaultGateway) trace(msg types.Message, event, status, detail string) {
	g.mu.RLock()
	tracer := g.tracer
	g.mu.RUnlock()
	if tracer == nil {
		return
	}

	traceEvent := TraceEvent{
		RequestID: strings.TrimSpace(msg.RequestID),
		MessageID: strings.TrimSpace(msg.ID),
		ChannelID: strings.TrimSpace(msg.ChannelID),
		ChatID:    strings.TrimSpace(msg.ChatID),
		UserID:    strings.TrimSpace(msg.UserID),
		Event:     event,
		Status:    status,
		Detail:    strings.TrimSpace(detail),
	}
	if err := tracer.Record(traceEvent); err != nil {
		log.Printf("[Gateway] Trace write failed: %v", err)
	}
}

func normalizeReply(response *types.Message, request types.Message) {
	if response.ID == "" {
		response.ID = "resp-" + request.ID
	}
	if response.ChannelID == "" {
		response.ChannelID = request.ChannelID
	}
	if response.ChatID == "" {
		response.ChatID = request.ChatID
	}
	if response.Role == "" {
		response.Role = types.RoleAssistant
	}
	if response.UserID == "" {
		response.UserID = request.UserID
	}
	if response.RequestID == "" {
		response.RequestID = request.RequestID
	}
}

func (g *DefaultGateway) channelByID(channelID string) (types.Channel, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	channel, exists := g.channels[channelID]
	return channel, exists
}

// conversationKey is the serialization unit: one user in one chat.
func conversationKey(msg types.Message) string {
	return msg.UserID + "|" + msg.ChatID
}

func (g *DefaultGateway) HealthStatus() HealthStatus {
	g.mu.RLock()
	channels := make([]string, 0, len(g.channels))
	for id := range g.channels {
		channels = append(channels, id)
	}
	botName := ""
	if g.bot != nil {
		botName = g.bot.Name()
	}
	g.mu.RUnlock()
	sort.Strings(channels)

	status := HealthStatus{
		RegisteredChannels: channels,
		BotName:            botName,
		ProcessedMessages:  atomic.LoadUint64(&g.processedMessages),
		DroppedMessages:    atomic.LoadUint64(&g.droppedMessages),
	}
	if g.dispatcher != nil {
		status.Dispatch = g.dispatcher.Stats()
	}
	if started := g.startedUnix.Load(); started > 0 {
		status.Started = true
		status.StartedAt = time.Unix(started, 0).UTC()
	}
	if last := g.lastMessageUnix.Load(); last > 0 {
		status.LastMessageAt = time.Unix(last, 0).UTC()
	}
	return status
}
