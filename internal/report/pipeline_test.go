package report

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeRetriever struct {
	citations map[string]string
	fail      map[string]bool
	calls     []string
}

func (f *fakeRetriever) Retrieve(ctx context.Context, topicKey, query string) (string, error) {
	f.calls = append(f.calls, topicKey+"/"+query)
	if f.fail[query] {
		return "", errors.New("retrieval process exited 1")
	}
	return f.citations[query], nil
}

const sampleReport = "-----最终建议反馈-----\n" +
	"您患肥胖症的风险较高\n" +
	"[1]少吃油炸食品；|推理：降低热量摄入\n" +
	"[2]每天快走30分钟；|推理：增加能量消耗\n" +
	"您患心绞痛的风险中等\n" +
	"[1]戒烟；|推理：保护血管内皮\n" +
	"\n### 总结与鼓励\n坚持就是胜利。"

func TestProcessWithoutMarkers(t *testing.T) {
	p := NewPipeline(nil, &Enricher{Retriever: &fakeRetriever{}})
	in := "请问您平时的饮食习惯如何？"
	res := p.Process(context.Background(), in)
	if res.IsFinalReport || res.Text != in {
		t.Fatalf("expected unchanged non-final result, got %+v", res)
	}
}

func TestProcessAssemblesExactFormat(t *testing.T) {
	r := &fakeRetriever{citations: map[string]string{
		"少吃油炸食品":   "Smith 2020",
		"每天快走30分钟": "  ",
		"戒烟":       RetrievalFailed,
	}}
	p := NewPipeline(nil, &Enricher{Retriever: r, Timeout: time.Second})
	res := p.Process(context.Background(), sampleReport)
	if !res.IsFinalReport {
		t.Fatal("expected final report")
	}
	want := "-----最终建议反馈-----\n" +
		"您患肥胖症的风险较高\n" +
		"[1] 少吃油炸食品;\n" +
		"   文献支持: Smith 2020\n" +
		"   推理依据: 降低热量摄入\n" +
		"\n" +
		"[2] 每天快走30分钟;\n" +
		"   推理依据: 增加能量消耗\n" +
		"\n" +
		"\n" +
		"您患心绞痛的风险中等\n" +
		"[1] 戒烟;\n" +
		"   推理依据: 保护血管内皮\n" +
		"\n" +
		"\n" +
		"### 总结与鼓励\n坚持就是胜利。"
	if res.Text != want {
		t.Fatalf("unexpected report:\n%s\n--- want ---\n%s", res.Text, want)
	}
	wantCalls := []string{
		"obesity_7_1_txt_res/少吃油炸食品",
		"obesity_7_1_txt_res/每天快走30分钟",
		"anginapcet_7_1_txt/戒烟",
	}
	if strings.Join(r.calls, ",") != strings.Join(wantCalls, ",") {
		t.Fatalf("calls = %v, want %v", r.calls, wantCalls)
	}
}

func TestProcessSingleRetrievalFailure(t *testing.T) {
	citations := map[string]string{"少吃油炸食品": "A", "每天快走30分钟": "B", "戒烟": "C"}
	ok := NewPipeline(nil, &Enricher{Retriever: &fakeRetriever{citations: citations}}).
		Process(context.Background(), sampleReport)
	broken := NewPipeline(nil, &Enricher{Retriever: &fakeRetriever{citations: citations, fail: map[string]bool{"每天快走30分钟": true}}}).
		Process(context.Background(), sampleReport)

	okLines := strings.Count(ok.Text, CitationLabel)
	brokenLines := strings.Count(broken.Text, CitationLabel)
	if okLines != 3 || brokenLines != 2 {
		t.Fatalf("citation lines: ok=%d broken=%d", okLines, brokenLines)
	}
	if strings.Count(broken.Text, "[") != strings.Count(ok.Text, "[") {
		t.Fatal("failure must not drop items")
	}
}

func TestProcessMarkerCountIsStable(t *testing.T) {
	p := NewPipeline(nil, nil)
	first := p.Process(context.Background(), sampleReport)
	second := p.Process(context.Background(), first.Text)
	if len(first.Markers) != 2 || len(second.Markers) != len(first.Markers) {
		t.Fatalf("marker counts: %d then %d", len(first.Markers), len(second.Markers))
	}
	for i := range first.Markers {
		if first.Markers[i].Marker != second.Markers[i].Marker {
			t.Fatalf("marker %d changed: %q -> %q", i, first.Markers[i].Marker, second.Markers[i].Marker)
		}
	}
}

func TestProcessMarkerWithoutItems(t *testing.T) {
	p := NewPipeline(nil, nil)
	res := p.Process(context.Background(), "您患肥胖症的风险较低\n目前无需特别干预。")
	if res.Text != "您患肥胖症的风险较低\n\n" {
		t.Fatalf("unexpected text %q", res.Text)
	}
}
