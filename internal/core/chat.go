package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"longevity-advisor/internal/llm"
	"longevity-advisor/internal/report"
	"longevity-advisor/internal/session"
	"longevity-advisor/pkg"
)

var (
	ErrUnknownModel = errors.New("unknown model")
	ErrEmptyPrompt  = errors.New("prompt must not be empty")
)

// AnonymousSession is used when a request names neither a session nor a user.
const AnonymousSession = "anonymous"

// SessionKey picks the conversation a request belongs to.
func SessionKey(sessionID, userID string) string {
	if s := strings.TrimSpace(sessionID); s != "" {
		return s
	}
	if u := strings.TrimSpace(userID); u != "" {
		return "user:" + u
	}
	return AnonymousSession
}

// ChatService orchestrates the interview. Each reply is one sequential
// pipeline: model call, translation to the working language, report
// assembly, score injection, translation to the delivery language,
// lifestyle injection and PDF rendering. Requests of the same session are
// serialized; different sessions run concurrently.
type ChatService struct {
	Models       map[string]llm.Client
	DefaultModel string
	// ChatTimeout bounds the interview model call.
	ChatTimeout time.Duration

	Pipeline  *report.Pipeline
	RoundTrip *RoundTrip
	Lifestyle *LifestyleWriter
	PDF       *PDFWriter

	Sessions session.Store
	Locks    *session.Locks
}

// NewChatService constructs a ChatService with an in-memory session store.
func NewChatService(models map[string]llm.Client, defaultModel string, pipeline *report.Pipeline) *ChatService {
	return &ChatService{
		Models:       models,
		DefaultModel: defaultModel,
		ChatTimeout:  10 * time.Minute,
		Pipeline:     pipeline,
		Sessions:     session.NewMemoryStore(),
		Locks:        session.NewLocks(),
	}
}

// Reply answers question within the session. Upstream failures become a
// fallback answer; an error is returned only when the session store fails.
func (s *ChatService) Reply(ctx context.Context, sessionID, userID, question string) (*pkg.ChatResponse, error) {
	unlock := s.Locks.Lock(sessionID)
	defer unlock()

	st, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if userID != "" {
		st.UserID = userID
	}
	if st.Prompt == "" {
		st.Prompt = DefaultPrompt()
	}
	st.Append(llm.RoleUser, question)

	resp := s.reply(ctx, st)
	if strings.TrimSpace(resp.Answer) == "" {
		slog.Warn("empty answer", "session", st.ID)
		resp.Answer = EmptyAnswer
	}
	if err := s.Sessions.Save(ctx, st); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return resp, nil
}

func (s *ChatService) reply(ctx context.Context, st *session.State) *pkg.ChatResponse {
	name, client := s.model(st.Model)
	answer, err := s.complete(ctx, client, st)
	if err != nil {
		slog.Error("model call failed", "session", st.ID, "model", name, "error", err)
		return &pkg.ChatResponse{Answer: fallbackMessage(name, err)}
	}
	st.Append(llm.RoleAssistant, answer)

	working := s.RoundTrip.ToWorking(ctx, answer)
	res := s.Pipeline.Process(ctx, working)
	if !res.IsFinalReport {
		return &pkg.ChatResponse{Answer: answer}
	}
	st.Phase = session.PhaseFinalReport
	slog.Info("final report detected", "session", st.ID, "markers", len(res.Markers))

	text := res.Text
	if len(st.Summary) > 0 {
		text = report.InsertBefore(text, WorkingSummaryAnchor, report.FormatHealthScores(st.Summary))
	}
	delivered := s.RoundTrip.ToDelivery(ctx, text, st.Summary)
	if section := s.Lifestyle.Section(ctx, st.SourceFile); section != "" {
		delivered = report.InsertBefore(delivered, DeliverySummaryAnchor, section)
	}
	return &pkg.ChatResponse{
		Answer:        delivered,
		IsFinalReport: true,
		PDFInfo:       s.PDF.Write(ctx, st.UserID, delivered),
	}
}

func (s *ChatService) complete(ctx context.Context, client llm.Client, st *session.State) (string, error) {
	if client == nil {
		return "", errors.New("no model configured")
	}
	if s.ChatTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.ChatTimeout)
		defer cancel()
	}
	return client.Chat(ctx, st.Messages(), llm.Options{})
}

func (s *ChatService) model(name string) (string, llm.Client) {
	if name == "" {
		name = s.DefaultModel
	}
	if c, ok := s.Models[name]; ok {
		return name, c
	}
	return s.DefaultModel, s.Models[s.DefaultModel]
}

// NewChat clears the conversation history of the session.
func (s *ChatService) NewChat(ctx context.Context, sessionID string) error {
	return s.update(ctx, sessionID, func(st *session.State) error {
		st.Restart()
		return nil
	})
}

// SetPrompt replaces the system prompt of the session.
func (s *ChatService) SetPrompt(ctx context.Context, sessionID, prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return ErrEmptyPrompt
	}
	return s.update(ctx, sessionID, func(st *session.State) error {
		st.Prompt = prompt
		return nil
	})
}

// SwitchModel selects the provider used by the session.
func (s *ChatService) SwitchModel(ctx context.Context, sessionID, model string) error {
	if _, ok := s.Models[model]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}
	return s.update(ctx, sessionID, func(st *session.State) error {
		st.Model = model
		return nil
	})
}

func (s *ChatService) update(ctx context.Context, sessionID string, fn func(*session.State) error) error {
	unlock := s.Locks.Lock(sessionID)
	defer unlock()
	st, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := fn(st); err != nil {
		return err
	}
	return s.Sessions.Save(ctx, st)
}

// fallbackMessage is the answer shown when the model call fails.
func fallbackMessage(model string, err error) string {
	if errors.Is(err, llm.ErrEmptyCompletion) {
		return model + " 暂时无法回答，请稍后再试"
	}
	switch f, msg := llm.Classify(err); f {
	case llm.FailureRateLimited:
		return "请求过于频繁，请稍后再试"
	case llm.FailureServer:
		return model + " 服务暂时不可用"
	case llm.FailureClient:
		if msg == "" {
			msg = err.Error()
		}
		return model + " 错误：" + msg
	default:
		return model + " 暂时无法回答，请稍后再试"
	}
}
