package vision

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/papercheck/internal/cache"
	"github.com/hyperifyio/papercheck/internal/docmodel"
)

// fakeClient answers by matching a prompt substring.
type fakeClient struct {
	mu      sync.Mutex
	replies map[string]string
	err     error
	calls   int
}

func (f *fakeClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	var prompt string
	for _, part := range req.Messages[0].MultiContent {
		if part.Type == openai.ChatMessagePartTypeText {
			prompt = part.Text
		}
	}
	reply := `{"ok": true}`
	for k, v := range f.replies {
		if strings.Contains(prompt, k) {
			reply = v
		}
	}
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: reply}}}}, nil
}

var png = docmodel.Image{RelID: "rId1", Part: "word/media/image1.png", ContentType: "image/png", Data: []byte("\x89PNG")}

func TestCheckFigure(t *testing.T) {
	cases := []struct {
		name    string
		replies map[string]string
		ok      bool
		want    []string
		calls   int
	}{
		{
			name:    "photo",
			replies: map[string]string{"是否为带坐标轴的图表": "```json\n{\"is_chart\": false, \"chart_type\": \"照片\"}\n```"},
			ok:      true,
			want:    []string{"图片类型: 照片"},
			calls:   1,
		},
		{
			name:    "compliant chart",
			replies: map[string]string{"是否为带坐标轴的图表": `{"is_chart": true, "chart_type": "折线图"}`},
			ok:      true,
			want:    []string{"✅ 图表内容符合所有规范"},
			calls:   6,
		},
		{
			name: "issues",
			replies: map[string]string{
				"是否为带坐标轴的图表": `{"is_chart": true}`,
				"刻度线是否指向图内":  `Here you go: {"ok": false, "description": "指向图外"}`,
				"组合单位是否加括号":  `{"ok": false, "issues": ["V/m应为(V/m)", "A/m应为(A/m)"]}`,
			},
			ok: false,
			want: []string{
				"❌ [刻度线方向] 指向图外",
				"❌ [组合单位括号] V/m应为(V/m)",
				"❌ [组合单位括号] A/m应为(A/m)",
			},
			calls: 6,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fc := &fakeClient{replies: tc.replies}
			c := &Checker{Client: fc, Model: "vl"}
			res, err := c.CheckFigure(context.Background(), png)
			if err != nil {
				t.Fatal(err)
			}
			if res.OK != tc.ok || strings.Join(res.Messages, "|") != strings.Join(tc.want, "|") {
				t.Fatalf("got %+v, want ok=%v %q", res, tc.ok, tc.want)
			}
			if fc.calls != tc.calls {
				t.Fatalf("calls = %d, want %d", fc.calls, tc.calls)
			}
		})
	}
}

func TestCheckFigure_Errors(t *testing.T) {
	if _, err := (&Checker{}).CheckFigure(context.Background(), png); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("unconfigured: %v", err)
	}
	c := &Checker{Client: &fakeClient{err: errors.New("boom")}, Model: "vl"}
	if _, err := c.CheckFigure(context.Background(), png); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("client error: %v", err)
	}
	emf := png
	emf.ContentType = "image/x-emf"
	res, err := c.CheckFigure(context.Background(), emf)
	if err != nil || res.OK {
		t.Fatalf("emf: %+v %v", res, err)
	}
}

func TestCheckFigure_UsesCache(t *testing.T) {
	store := &cache.LLMCache{Dir: t.TempDir()}
	replies := map[string]string{"是否为带坐标轴的图表": `{"is_chart": false, "chart_type": "照片"}`}
	first := &fakeClient{replies: replies}
	if _, err := (&Checker{Client: first, Model: "vl", Cache: store}).CheckFigure(context.Background(), png); err != nil {
		t.Fatal(err)
	}
	second := &fakeClient{err: errors.New("must not be called")}
	res, err := (&Checker{Client: second, Model: "vl", Cache: store}).CheckFigure(context.Background(), png)
	if err != nil || !res.OK || second.calls != 0 {
		t.Fatalf("cached: %+v %v calls=%d", res, err, second.calls)
	}
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		in, want string
		ok       bool
	}{
		{`{"a":1}`, `{"a":1}`, true},
		{"```json\n{\"a\":1}\n```", `{"a":1}`, true},
		{"```\n{\"a\":1}\n```", `{"a":1}`, true},
		{`result: {"a":1} done`, `{"a":1}`, true},
		{"no json here", "", false},
	}
	for _, tc := range cases {
		got, err := ExtractJSON(tc.in)
		if (err == nil) != tc.ok || string(got) != tc.want {
			t.Errorf("ExtractJSON(%q) = %q, %v", tc.in, got, err)
		}
	}
}
