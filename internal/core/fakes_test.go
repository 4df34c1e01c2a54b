package core

import (
	"context"
	"errors"
	"os"
	"sync"

	"longevity-advisor/internal/llm"
	"longevity-advisor/internal/report"
)

type fakeLLM struct {
	mu      sync.Mutex
	calls   [][]llm.Message
	opts    []llm.Options
	respond func(msgs []llm.Message) (string, error)
}

func (f *fakeLLM) Chat(_ context.Context, msgs []llm.Message, opts llm.Options) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]llm.Message(nil), msgs...))
	f.opts = append(f.opts, opts)
	f.mu.Unlock()
	return f.respond(msgs)
}

func (f *fakeLLM) last() []llm.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return nil
	}
	return f.calls[len(f.calls)-1]
}

func answering(answers ...string) *fakeLLM {
	i := 0
	return &fakeLLM{respond: func([]llm.Message) (string, error) {
		a := answers[i%len(answers)]
		i++
		return a, nil
	}}
}

func failing(err error) *fakeLLM {
	return &fakeLLM{respond: func([]llm.Message) (string, error) { return "", err }}
}

// translator answers the two translation prompts and records their input.
type translator struct {
	toWorking  string
	toDelivery string
	deliveryIn string
	err        error
}

func (tr *translator) client() *fakeLLM {
	return &fakeLLM{respond: func(msgs []llm.Message) (string, error) {
		if tr.err != nil {
			return "", tr.err
		}
		switch msgs[0].Content {
		case ToWorkingPrompt():
			return tr.toWorking, nil
		case ToDeliveryPrompt():
			tr.deliveryIn = msgs[1].Content
			return tr.toDelivery, nil
		}
		return "", errors.New("unexpected prompt")
	}}
}

type fakeRetriever struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeRetriever) Retrieve(_ context.Context, topicKey, query string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return "doi:10.1000/" + topicKey, nil
}

type fakeAssessor struct {
	res *report.LifestyleResult
	err error
}

func (f *fakeAssessor) Assess(context.Context, string) (*report.LifestyleResult, error) {
	return f.res, f.err
}

type fakeRenderer struct{ err error }

func (f *fakeRenderer) Render(_ context.Context, src, dst, _ string) error {
	if f.err != nil {
		return f.err
	}
	b, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, b, 0o644)
}

type fakeReportStore struct {
	saved chan string
}

func (f *fakeReportStore) SavePDFReport(_ context.Context, userID, path string) (int64, error) {
	f.saved <- userID + ":" + path
	return 1, nil
}

type fakeScorer struct {
	pred *report.Prediction
	err  error
	seen []string
}

func (f *fakeScorer) Score(_ context.Context, path string) (*report.Prediction, error) {
	f.seen = append(f.seen, path)
	return f.pred, f.err
}
