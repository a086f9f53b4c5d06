package prompt

import (
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/model"
)

// Data 模板可用的字段
type Data struct {
	ID               string
	Date             string
	WithDescriptions bool
}

const defaultTemplate = `【検索と事実確認】
1. Google 検索などで、{{.Date}} の日本の経済・ビジネスニュースを調べてください。
2. 日本経済新聞、Bloomberg、ロイター、時事通信などの信頼できる報道を情報源にしてください。
3. 検索結果にない出来事は書かないでください。{{.Date}} が休日などで新しいニュースが少ない場合は、直近 24〜48 時間の重要なニュースを使ってください。
4. それでも見つからない場合は、タイトルを「【休刊日】本日の重要ニュースはありません」、本文を「経済の大きな動きは報告されていません」としてください。

【書き方】
- 事実は情報源どおりに要約し、文章はそのまま写さず自分の言葉で解説コラムとして書き直してください。
- 本文に特定の報道機関名を出さないでください。
- 専門用語は「学校」「ゲーム」「お小遣い」などの身近なたとえで、中学生にも分かるように説明してください。
- glossary の term は本文に出てくる表記と完全に一致させてください。

【出力形式】
次の JSON オブジェクトだけを出力してください。
{
  "id": "{{.ID}}",
  "date": "{{.Date}}",
  "titles": { "ja": "タイトル", "en": "Title" },
{{- if .WithDescriptions}}
  "descriptions": { "ja": "120 字程度の要約", "en": "Short summary" },
{{- end}}
  "contents": {
    "ja": "【ニュースの事実】\n(検索結果に基づく事実)\n\n【中学生への解説】\n(たとえを使った解説)\n\n【生活への影響】\n(これからの暮らしへの影響)",
    "en": "English summary"
  },
  "mermaid": { "ja": "graph TD\nA-->B", "en": "graph TD\nA-->B" },
  "glossary": [
    { "term": { "ja": "用語", "en": "Term" }, "def": { "ja": "解説", "en": "Definition" } }
  ]
}
`

// Builder 渲染给生成器的指令文本
type Builder struct {
	tmpl             *template.Template
	withDescriptions bool
}

// NewBuilder 使用内置模板
func NewBuilder(withDescriptions bool) *Builder {
	return &Builder{
		tmpl:             template.Must(template.New("prompt").Parse(defaultTemplate)),
		withDescriptions: withDescriptions,
	}
}

// LoadBuilder 从文件读取模板，path 为空时使用内置模板
func LoadBuilder(path string, withDescriptions bool) (*Builder, error) {
	if path == "" {
		return NewBuilder(withDescriptions), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt template: %w", err)
	}
	tmpl, err := template.New("prompt").Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse prompt template %s: %w", path, err)
	}
	return &Builder{tmpl: tmpl, withDescriptions: withDescriptions}, nil
}

// Build 按身份戳渲染
func (b *Builder) Build(stamp model.Stamp) (string, error) {
	var sb strings.Builder
	err := b.tmpl.Execute(&sb, Data{
		ID:               stamp.ID,
		Date:             stamp.Date,
		WithDescriptions: b.withDescriptions,
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return sb.String(), nil
}
