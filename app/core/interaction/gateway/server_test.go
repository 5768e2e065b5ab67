package gateway

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"taskpilot/app/core/dispatch"
	"taskpilot/app/pkg/types"
)

type scriptedBot struct {
	mu      sync.Mutex
	replies map[string]string
	err     error
	seen    []string
}

func (b *scriptedBot) Name() string { return "test-bot" }

func (b *scriptedBot) Process(_ context.Context, msg types.Message) (types.Message, error) {
	b.mu.Lock()
	b.seen = append(b.seen, msg.Content)
	b.mu.Unlock()
	if b.err != nil {
		return types.Message{}, b.err
	}
	return types.Message{Content: b.replies[msg.Content]}, nil
}

type scriptedChannel struct {
	id      string
	inbound []types.Message

	mu   sync.Mutex
	sent []types.Message
	done chan struct{}
	want int
}

func (c *scriptedChannel) ID() string { return c.id }

func (c *scriptedChannel) Start(ctx context.Context, handler func(types.Message)) error {
	for _, msg := range c.inbound {
		handler(msg)
	}
	<-ctx.Done()
	return nil
}

func (c *scriptedChannel) Send(_ context.Context, msg types.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	if c.done != nil && len(c.sent) == c.want {
		close(c.done)
	}
	return nil
}

func inboundMsg(id, content string) types.Message {
	return types.Message{
		ID:        id,
		Content:   content,
		Role:      types.RoleUser,
		ChannelID: "test",
		ChatID:    "c1",
		UserID:    "u1",
		RequestID: "req-" + id,
	}
}

func TestGatewayDeliversBotReplies(t *testing.T) {
	bot := &scriptedBot{replies: map[string]string{"ping": "pong"}}
	channel := &scriptedChannel{
		id:      "test",
		inbound: []types.Message{inboundMsg("1", "ping")},
		done:    make(chan struct{}),
		want:    1,
	}
	d := dispatch.New(16)
	defer d.Stop(time.Second)
	gw := NewGateway(bot, d)
	gw.RegisterChannel(channel)

	ctx, cancel := context.WithCancel(context.Background())
	go gw.Start(ctx)

	select {
	case <-channel.done:
	case <-time.After(2 * time.Second):
		t.Fatal("reply never delivered")
	}
	cancel()

	channel.mu.Lock()
	defer channel.mu.Unlock()
	reply := channel.sent[0]
	if reply.Content != "pong" {
		t.Fatalf("reply: %+v", reply)
	}
	if reply.ChatID != "c1" || reply.RequestID != "req-1" || reply.Role != types.RoleAssistant {
		t.Fatalf("reply not normalized: %+v", reply)
	}
}

func TestGatewaySkipsEmptyReplies(t *testing.T) {
	bot := &scriptedBot{replies: map[string]string{"noise": ""}}
	channel := &scriptedChannel{
		id:      "test",
		inbound: []types.Message{inboundMsg("1", "noise")},
	}
	d := dispatch.New(16)
	defer d.Stop(time.Second)
	gw := NewGateway(bot, d)
	gw.RegisterChannel(channel)

	ctx, cancel := context.WithCancel(context.Background())
	go gw.Start(ctx)
	time.Sleep(200 * time.Millisecond)
	cancel()

	channel.mu.Lock()
	defer channel.mu.Unlock()
	if len(channel.sent) != 0 {
		t.Fatalf("silence expected, sent %+v", channel.sent)
	}
}

func TestGatewaySendsErrorReply(t *testing.T) {
	bot := &scriptedBot{err: errors.New("boom")}
	channel := &scriptedChannel{
		id:      "test",
		inbound: []types.Message{inboundMsg("1", "hello")},
		done:    make(chan struct{}),
		want:    1,
	}
	d := dispatch.New(16)
	defer d.Stop(time.Second)
	gw := NewGateway(bot, d)
	gw.RegisterChannel(channel)

	ctx, cancel := context.WithCancel(context.Background())
	go gw.Start(ctx)

	select {
	case <-channel.done:
	case <-time.After(2 * time.Second):
		t.Fatal("error reply never delivered")
	}
	cancel()

	channel.mu.Lock()
	defer channel.mu.Unlock()
	if !strings.Contains(channel.sent[0].Content, "boom") {
		t.Fatalf("error reply: %+v", channel.sent[0])
	}
}

func TestGatewayProcessesConversationInOrder(t *testing.T) {
	bot := &scriptedBot{replies: map[string]string{}}
	var inbound []types.Message
	for _, content := range []string{"a", "b", "c", "d", "e"} {
		inbound = append(inbound, inboundMsg(content, content))
	}
	channel := &scriptedChannel{id: "test", inbound: inbound}
	d := dispatch.New(16)
	defer d.Stop(time.Second)
	gw := NewGateway(bot, d)
	gw.RegisterChannel(channel)

	ctx, cancel := context.WithCancel(context.Background())
	go gw.Start(ctx)

	deadline := time.After(2 * time.Second)
	for {
		bot.mu.Lock()
		n := len(bot.seen)
		bot.mu.Unlock()
		if n == len(inbound) {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("only %d messages processed", n)
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	bot.mu.Lock()
	defer bot.mu.Unlock()
	for i, content := range []string{"a", "b", "c", "d", "e"} {
		if bot.seen[i] != content {
			t.Fatalf("order broken: %v", bot.seen)
		}
	}
}

func TestDeliverDirect(t *testing.T) {
	channel := &scriptedChannel{id: "test"}
	d := dispatch.New(16)
	defer d.Stop(time.Second)
	gw := NewGateway(&scriptedBot{}, d)
	gw.RegisterChannel(channel)

	if err := gw.DeliverDirect(context.Background(), "test", "c9", "scheduled report"); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	channel.mu.Lock()
	defer channel.mu.Unlock()
	if len(channel.sent) != 1 || channel.sent[0].ChatID != "c9" || channel.sent[0].Content != "scheduled report" {
		t.Fatalf("sent: %+v", channel.sent)
	}

	if err := gw.DeliverDirect(context.Background(), "missing", "c9", "x"); err == nil {
		t.Fatal("unknown channel must fail")
	}
	if err := gw.DeliverDirect(context.Background(), "test", "", "x"); err == nil {
		t.Fatal("missing chat id must fail")
	}
}

func TestHealthStatusCounters(t *testing.T) {
	bot := &scriptedBot{replies: map[string]string{"ping": "pong"}}
	channel := &scriptedChannel{
		id:      "test",
		inbound: []types.Message{inboundMsg("1", "ping")},
		done:    make(chan struct{}),
		want:    1,
	}
	d := dispatch.New(16)
	defer d.Stop(time.Second)
	gw := NewGateway(bot, d)
	gw.RegisterChannel(channel)

	ctx, cancel := context.WithCancel(context.Background())
	go gw.Start(ctx)
	<-channel.done
	cancel()

	status := gw.HealthStatus()
	if !status.Started || status.ProcessedMessages != 1 || status.BotName != "test-bot" {
		t.Fatalf("status: %+v", status)
	}
	if len(status.RegisteredChannels) != 1 || status.RegisteredChannels[0] != "test" {
		t.Fatalf("channels: %+v", status.RegisteredChannels)
	}
}
