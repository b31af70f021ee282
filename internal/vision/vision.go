// Package vision reviews chart images with an OpenAI-compatible vision
// model. It first asks whether an image is a chart with axes and, if so,
// asks one question per chart convention.
package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/papercheck/internal/cache"
	"github.com/hyperifyio/papercheck/internal/docmodel"
	"github.com/hyperifyio/papercheck/internal/llm"
	"github.com/hyperifyio/papercheck/internal/report"
)

// Question is one chart convention put to the model.
type Question struct {
	Key    string
	Label  string
	Prompt string
}

const chartPrompt = "**严格要求：只输出JSON，不要任何解释文字**\n\n" +
	"判断图片是否为带坐标轴的图表？\n\n输出格式（二选一）：\n" +
	"```json\n{\"is_chart\": true, \"chart_type\": \"折线图\"}\n```\n" +
	"```json\n{\"is_chart\": false, \"chart_type\": \"照片\"}\n```\n\n禁止输出任何JSON之外的文字！"

// Questions are asked in order for every chart.
var Questions = []Question{
	{"tick_direction", "刻度线方向", "**只输出JSON，不要任何其他文字**\n\n刻度线是否指向图内？（要求：必须指向图内）\n\n格式：\n" +
		"```json\n{\"ok\": true, \"description\": \"指向图内\"}\n```\n或\n```json\n{\"ok\": false, \"description\": \"指向图外\"}\n```"},
	{"unit_format", "物理量单位表示", "**只输出JSON**\n\n物理量/单位格式是否正确？\n要求：用\"/\"分隔，物理量斜体，单位正体\n\n" +
		"```json\n{\"ok\": true, \"issues\": []}\n```\n或\n```json\n{\"ok\": false, \"issues\": [\"E未斜体\", \"V应正体\"]}\n```\n\n只列问题，不解释！"},
	{"unit_brackets", "组合单位括号", "**只输出JSON**\n\n组合单位是否加括号？\n要求：组合单位加括号(H/m)，℃不加，角度(°)加\n\n" +
		"```json\n{\"ok\": true, \"issues\": []}\n```\n或\n```json\n{\"ok\": false, \"issues\": [\"V/m应为(V/m)\"]}\n```"},
	{"decimal_consistency", "数值格式统一性", "**只输出JSON**\n\n纵横轴小数位数是否一致？\n规则：纵轴0.1,0.2(1位) → 横轴必须1.0,2.0(1位)，不能1,2(整数)\n\n" +
		"```json\n{\"ok\": true, \"y_decimals\": \"1位\", \"x_decimals\": \"1位\"}\n```\n或\n" +
		"```json\n{\"ok\": false, \"y_decimals\": \"1位\", \"x_decimals\": \"0位\", \"description\": \"不一致\"}\n```"},
	{"axis_title_consistency", "坐标轴标题一致性", "**只输出JSON**\n\n纵横坐标标题用文字还是符号？是否统一？\n要求：都用文字或都用符号\n" +
		"✓ Temperature/Time  ✓ T/t  ✗ Temperature/t\n\n" +
		"```json\n{\"ok\": true, \"y_type\": \"符号\", \"x_type\": \"符号\"}\n```\n或\n" +
		"```json\n{\"ok\": false, \"y_type\": \"文字\", \"x_type\": \"符号\", \"description\": \"不统一\"}\n```"},
}

// ErrNotConfigured is returned when the checker has no client or model.
var ErrNotConfigured = errors.New("vision model not configured")

var supportedTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
	"image/bmp":  true,
}

// Checker implements detect.ContentChecker.
type Checker struct {
	Client llm.Client
	Model  string
	// Cache is optional.
	Cache *cache.LLMCache
}

type chartAnswer struct {
	IsChart   bool   `json:"is_chart"`
	ChartType string `json:"chart_type"`
}

type answer struct {
	OK          *bool    `json:"ok"`
	Issues      []string `json:"issues"`
	Description string   `json:"description"`
}

// CheckFigure asks the model about img. A non-chart passes with its image
// type as an informational message.
func (c *Checker) CheckFigure(ctx context.Context, img docmodel.Image) (report.CheckResult, error) {
	if c == nil || c.Client == nil || c.Model == "" {
		return report.CheckResult{}, ErrNotConfigured
	}
	if len(img.Data) == 0 {
		return report.Fail("无法提取图片数据"), nil
	}
	if !supportedTypes[img.ContentType] {
		return report.Fail(fmt.Sprintf("图片格式不支持内容检查：%s", img.ContentType)), nil
	}

	var chart chartAnswer
	if err := c.ask(ctx, img, chartPrompt, &chart); err != nil {
		return report.CheckResult{}, fmt.Errorf("图片类型判断失败: %w", err)
	}
	if !chart.IsChart {
		kind := chart.ChartType
		if kind == "" {
			kind = "非图表"
		}
		return report.Pass("图片类型: " + kind), nil
	}
	log.Debug().Str("part", img.Part).Str("chart_type", chart.ChartType).Msg("figure is a chart")

	var msgs []string
	for _, q := range Questions {
		var a answer
		if err := c.ask(ctx, img, q.Prompt, &a); err != nil {
			log.Warn().Err(err).Str("question", q.Key).Str("part", img.Part).Msg("vision question failed")
			msgs = append(msgs, fmt.Sprintf("❌ [%s] 检查失败: %v", q.Label, err))
			continue
		}
		if a.OK == nil || *a.OK {
			continue
		}
		switch {
		case len(a.Issues) > 0:
			for _, is := range a.Issues {
				msgs = append(msgs, fmt.Sprintf("❌ [%s] %s", q.Label, is))
			}
		case a.Description != "":
			msgs = append(msgs, fmt.Sprintf("❌ [%s] %s", q.Label, a.Description))
		default:
			msgs = append(msgs, fmt.Sprintf("❌ [%s] 不符合规范", q.Label))
		}
	}
	if len(msgs) > 0 {
		return report.Fail(msgs...), nil
	}
	return report.Pass("✅ 图表内容符合所有规范"), nil
}

// ask sends prompt with the image and decodes the JSON answer into v.
func (c *Checker) ask(ctx context.Context, img docmodel.Image, prompt string, v any) error {
	key := cache.KeyFrom(c.Model, prompt, img.Data)
	if c.Cache != nil {
		if raw, ok, _ := c.Cache.Get(ctx, key); ok {
			if err := json.Unmarshal(raw, v); err == nil {
				return nil
			}
		}
	}
	url := "data:" + img.ContentType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
	resp, err := c.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.Model,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: url, Detail: openai.ImageURLDetailAuto}},
				{Type: openai.ChatMessagePartTypeText, Text: prompt},
			},
		}},
		Temperature:    0.1,
		MaxTokens:      512,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return fmt.Errorf("vision call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return errors.New("no choices")
	}
	raw, err := ExtractJSON(resp.Choices[0].Message.Content)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("parse vision json: %w", err)
	}
	if c.Cache != nil {
		_ = c.Cache.Save(ctx, key, raw)
	}
	return nil
}

var fenced = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// ExtractJSON returns the JSON object in a model reply. The object may be
// wrapped in a fenced code block or surrounded by prose.
func ExtractJSON(content string) ([]byte, error) {
	s := strings.TrimSpace(content)
	if m := fenced.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}
	if json.Valid([]byte(s)) {
		return []byte(s), nil
	}
	start, end := strings.Index(s, "{"), strings.LastIndex(s, "}")
	if start >= 0 && end > start && json.Valid([]byte(s[start:end+1])) {
		return []byte(s[start : end+1]), nil
	}
	return nil, fmt.Errorf("no JSON object in reply %q", truncate(content, 80))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
