package backend

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestHostedSummarize(t *testing.T) {
	provider := newFakeProvider(map[string]func(string) (string, error){
		"gemini-2.5-pro": reply("\n- The Term is 12 months.\n", nil),
	})
	h := NewHostedBackend("gemini-2.5-pro", provider, HostedOptions{})

	doc := strings.Repeat("a", 5000)
	sum, err := h.Summarize(context.Background(), doc)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if sum.Text != "- The Term is 12 months." || sum.Backend != "gemini-2.5-pro" {
		t.Errorf("summary = %+v", sum)
	}
	calls := provider.calls()
	if len(calls) != 1 || calls[0].model != "gemini-2.5-pro" {
		t.Fatalf("calls = %+v", calls)
	}
	if calls[0].prompt != StyleInstruction+strings.Repeat("a", 4000) {
		t.Errorf("prompt length = %d, want %d", len(calls[0].prompt), len(StyleInstruction)+4000)
	}
}

func TestHostedSummarizeErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind ErrorKind
	}{
		{"remote", errors.New("503 service unavailable"), KindRemote},
		{"quota", errors.New("429 Resource has been exhausted (e.g. check quota)"), KindQuota},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newFakeProvider(map[string]func(string) (string, error){
				"gemini-2.5-pro": reply("", tt.err),
			})
			h := NewHostedBackend("gemini-2.5-pro", provider, HostedOptions{})
			_, err := h.Summarize(context.Background(), "The Term is twelve months.")
			if !IsKind(err, tt.wantKind) {
				t.Fatalf("err = %v, want kind %s", err, tt.wantKind)
			}
			if FailureText(err) != HostedLabel+" error: "+tt.err.Error() {
				t.Errorf("FailureText = %q", FailureText(err))
			}
		})
	}

	h := NewHostedBackend("gemini-2.5-pro", newFakeProvider(nil), HostedOptions{})
	if _, err := h.Summarize(context.Background(), "   "); !IsKind(err, KindInvalidInput) {
		t.Errorf("blank input err = %v", err)
	}
}

func TestAskTiers(t *testing.T) {
	quota := errors.New("429 Quota exceeded for metric generate_content")
	tests := []struct {
		name       string
		replies    map[string]func(string) (string, error)
		wantText   string
		wantModel  string
		wantErr    bool
		exhausted  bool
		wantCalls  []string
		wantSleeps int
	}{
		{
			name:      "first tier answers",
			replies:   nil,
			wantText:  "ok",
			wantModel: "gemini-2.5-pro",
			wantCalls: []string{"gemini-2.5-pro"},
		},
		{
			name: "quota moves to next tier",
			replies: map[string]func(string) (string, error){
				"gemini-2.5-pro":   reply("", quota),
				"gemini-1.5-flash": reply("flash answer", nil),
			},
			wantText:   "flash answer",
			wantModel:  "gemini-1.5-flash",
			wantCalls:  []string{"gemini-2.5-pro", "gemini-1.5-flash"},
			wantSleeps: 1,
		},
		{
			name: "non-quota error stops",
			replies: map[string]func(string) (string, error){
				"gemini-2.5-pro": reply("", errors.New("invalid argument")),
			},
			wantErr:   true,
			wantCalls: []string{"gemini-2.5-pro"},
		},
		{
			name: "every tier over quota",
			replies: map[string]func(string) (string, error){
				"gemini-2.5-pro":   reply("", quota),
				"gemini-1.5-flash": reply("", errors.New("QUOTA exhausted")),
			},
			wantText:   AllModelsFailedMessage,
			exhausted:  true,
			wantCalls:  []string{"gemini-2.5-pro", "gemini-1.5-flash"},
			wantSleeps: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newFakeProvider(tt.replies)
			sleeper := &sleepRecorder{}
			h := NewHostedBackend("gemini-2.5-pro", provider, HostedOptions{
				QuotaBackoff: 2 * time.Second,
				Sleep:        sleeper.sleep,
			})

			res, err := h.Ask(context.Background(), "What is the term?")
			if tt.wantErr {
				if err == nil || !IsKind(err, KindRemote) {
					t.Fatalf("err = %v, want remote error", err)
				}
			} else if err != nil {
				t.Fatalf("Ask: %v", err)
			}
			if res.Text != tt.wantText || res.Model != tt.wantModel || res.Exhausted != tt.exhausted {
				t.Errorf("result = %+v", res)
			}

			var models []string
			for _, c := range provider.calls() {
				models = append(models, c.model)
				if c.prompt != "What is the term?" {
					t.Errorf("prompt = %q", c.prompt)
				}
			}
			if strings.Join(models, ",") != strings.Join(tt.wantCalls, ",") {
				t.Errorf("models = %v, want %v", models, tt.wantCalls)
			}
			if len(sleeper.sleeps) != tt.wantSleeps {
				t.Errorf("sleeps = %v, want %d", sleeper.sleeps, tt.wantSleeps)
			}
			for _, d := range sleeper.sleeps {
				if d != 2*time.Second {
					t.Errorf("backoff = %v", d)
				}
			}
		})
	}
}

func TestAskCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	provider := newFakeProvider(map[string]func(string) (string, error){
		"gemini-2.5-pro": func(string) (string, error) {
			cancel()
			return "", errors.New("429 quota")
		},
	})
	h := NewHostedBackend("gemini-2.5-pro", provider, HostedOptions{
		QuotaBackoff: time.Second,
		Sleep: func(ctx context.Context, _ time.Duration) error {
			return ctx.Err()
		},
	})
	if _, err := h.Ask(ctx, "q"); err == nil {
		t.Fatal("expected an error after cancellation")
	}
	if n := len(provider.calls()); n != 1 {
		t.Errorf("calls after cancel = %d", n)
	}
}
