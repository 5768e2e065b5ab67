package flow

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"taskpilot/app/core/session"
)

// Random walks through the create flow must keep two invariants: a
// prompt always means a live session, and a terminal reply always
// means the session is gone.
func TestCreateFlowSessionInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		api := newFakeAPI()
		engine, _ := newTestEngine(api)
		key := testKey()
		ctx := context.Background()

		out := engine.Start(ctx, key, session.FlowCreate)
		inputs := rapid.SliceOfN(rapid.SampledFrom([]string{
			"some text", "skip", "2026-09-01", "1", "2", "99", "back", "yes",
		}), 1, 12).Draw(t, "inputs")

		for _, input := range inputs {
			if out.Kind != OutPrompt {
				break
			}
			out = engine.Handle(ctx, key, input)
			switch out.Kind {
			case OutPrompt:
				if !engine.Active(key) {
					t.Fatalf("prompt with no live session after %q", input)
				}
			default:
				if engine.Active(key) {
					t.Fatalf("terminal reply %d but session still live after %q", out.Kind, input)
				}
			}
		}
	})
}

// Cancel must destroy the session at every reachable step and never
// commit anything.
func TestCancelAlwaysDestroysSession(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		api := newFakeAPI()
		engine, _ := newTestEngine(api)
		key := testKey()
		ctx := context.Background()

		out := engine.Start(ctx, key, session.FlowCreate)
		steps := rapid.IntRange(0, 8).Draw(t, "steps")
		walk := []string{"a task", "skip", "2026-09-01", "1", "1", "1", "1"}
		for i := 0; i < steps && i < len(walk) && out.Kind == OutPrompt; i++ {
			out = engine.Handle(ctx, key, walk[i])
		}
		if out.Kind != OutPrompt {
			return
		}

		out = engine.Handle(ctx, key, "cancel")
		if out.Kind != OutCancelled {
			t.Fatalf("cancel: %+v", out)
		}
		if engine.Active(key) {
			t.Fatal("session survived cancel")
		}
		if len(api.created) != 0 {
			t.Fatal("cancel must not create a task")
		}
	})
}

// Any number of consecutive backs must re-render a prompt that was
// already shown, never invent a new one.
func TestBackOnlyRevisitsShownPrompts(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		api := newFakeAPI()
		engine, _ := newTestEngine(api)
		key := testKey()
		ctx := context.Background()

		out := engine.Start(ctx, key, session.FlowCreate)
		shown := map[string]bool{out.Text: true}

		forward := rapid.IntRange(0, 6).Draw(t, "forward")
		walk := []string{"a task", "skip", "2026-09-01", "1", "1", "1"}
		for i := 0; i < forward && out.Kind == OutPrompt; i++ {
			out = engine.Handle(ctx, key, walk[i])
			if out.Kind == OutPrompt {
				shown[out.Text] = true
			}
		}
		if out.Kind != OutPrompt {
			return
		}

		backs := rapid.IntRange(1, 8).Draw(t, "backs")
		for i := 0; i < backs; i++ {
			out = engine.Handle(ctx, key, "back")
			if out.Kind != OutPrompt {
				t.Fatalf("back produced terminal reply: %+v", out)
			}
			text := strings.TrimPrefix(out.Text, "You're already at the first step.\n\n")
			if !shown[text] {
				t.Fatalf("back rendered a never-shown prompt: %q", out.Text)
			}
		}
	})
}

// Out-of-range numbered choices must re-render the same option list.
func TestOutOfRangeChoiceKeepsOptions(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		api := newFakeAPI()
		engine, _ := newTestEngine(api)
		key := testKey()
		ctx := context.Background()

		out := engine.Start(ctx, key, session.FlowView)
		base := out.Text

		bad := rapid.IntRange(2, 1000).Draw(t, "bad")
		out = engine.Handle(ctx, key, strconv.Itoa(bad))
		if out.Kind != OutPrompt {
			t.Fatalf("out of range: %+v", out)
		}
		if !strings.HasSuffix(out.Text, base) {
			t.Fatalf("option list changed:\nbefore %q\nafter  %q", base, out.Text)
		}
	})
}
