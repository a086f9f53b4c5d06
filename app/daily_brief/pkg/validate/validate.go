package validate

import (
	"fmt"
	"strings"
	"time"

	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/model"
)

// Violation 一条结构性问题
type Violation struct {
	Field  string
	Reason string
}

func (v Violation) String() string {
	return v.Field + ": " + v.Reason
}

// Violations 实现 error，方便上层包装
type Violations []Violation

func (vs Violations) Error() string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return "invalid entry: " + strings.Join(parts, "; ")
}

// Result 校验结果，Entry 已剔除坏掉的术语
type Result struct {
	Entry           model.Entry
	Violations      Violations
	DroppedGlossary int
	// DroppedDescriptions descriptions 不完整被移除
	DroppedDescriptions bool
}

// OK 没有违规
func (r Result) OK() bool {
	return len(r.Violations) == 0
}

// Err 有违规时返回 error，否则 nil
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return r.Violations
}

// Validate 检查归一化后的条目
// 术语和 descriptions 的问题只剔除对应部分，不算违规。
func Validate(e model.Entry) Result {
	var res Result

	if strings.TrimSpace(e.ID) == "" {
		res.Violations = append(res.Violations, Violation{Field: "id", Reason: "empty"})
	}
	if _, err := time.Parse(model.DateLayout, e.Date); err != nil {
		res.Violations = append(res.Violations, Violation{Field: "date", Reason: fmt.Sprintf("not YYYY-MM-DD: %q", e.Date)})
	}

	checkLocalized(&res, "titles", e.Titles)
	checkLocalized(&res, "contents", e.Contents)
	checkLocalized(&res, "mermaid", e.Mermaid)

	if e.Descriptions != nil && !e.Descriptions.Complete() {
		e.Descriptions = nil
		res.DroppedDescriptions = true
	}

	kept := make([]model.GlossaryTerm, 0, len(e.Glossary))
	for _, g := range e.Glossary {
		if g.Term.Complete() && g.Def.Complete() {
			kept = append(kept, g)
			continue
		}
		res.DroppedGlossary++
	}
	e.Glossary = kept

	res.Entry = e
	return res
}

func checkLocalized(res *Result, field string, t model.LocalizedText) {
	if strings.TrimSpace(t.JA) == "" {
		res.Violations = append(res.Violations, Violation{Field: field + ".ja", Reason: "empty"})
	}
	if strings.TrimSpace(t.EN) == "" {
		res.Violations = append(res.Violations, Violation{Field: field + ".en", Reason: "empty"})
	}
}
