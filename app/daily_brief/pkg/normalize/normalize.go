package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/model"
)

// ErrEmptyList 生成器返回了空数组，无法重建条目
var ErrEmptyList = errors.New("normalize: generator returned an empty list")

// IrregularMarker 非对象输出被包装时加在英文字段前的标记
const IrregularMarker = "[irregular response] "

const (
	keyID           = "id"
	keyDate         = "date"
	keyTitles       = "titles"
	keyContents     = "contents"
	keyMermaid      = "mermaid"
	keyDescriptions = "descriptions"
	keyGlossary     = "glossary"
)

// aliases 单数/旧键名 -> 规范键名，只在规范键缺失时生效
var aliases = []struct{ from, to string }{
	{"title", keyTitles},
	{"content", keyContents},
	{"description", keyDescriptions},
}

var (
	DefaultTitles   = model.LocalizedText{JA: "データなし", EN: "No data"}
	DefaultContents = model.LocalizedText{JA: "データなし", EN: "No data"}
	DefaultMermaid  = model.LocalizedText{JA: "graph TD\nA-->B", EN: "graph TD\nA-->B"}
)

// Anomaly 一次自动修复，不是错误，但需要可观测
type Anomaly string

const (
	AnomalyListWrapped        Anomaly = "list_wrapped"
	AnomalyNonObject          Anomaly = "non_object"
	AnomalyIdentityOverridden Anomaly = "identity_overridden"
)

func aliasAnomaly(from, to string) Anomaly { return Anomaly("alias:" + from + "->" + to) }
func defaultAnomaly(key string) Anomaly    { return Anomaly("default:" + key) }
func malformedAnomaly(key string) Anomaly  { return Anomaly("malformed:" + key) }

// Result 归一化结果
type Result struct {
	Entry     model.Entry
	Anomalies []Anomaly
}

// Parse 把抽取出的片段解析为任意 JSON 值
func Parse(text string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("parse generator json: %w", err)
	}
	if dec.More() {
		return nil, errors.New("parse generator json: trailing data after value")
	}
	return v, nil
}

// Normalize 修复形状并盖上调用方的身份字段
// 只有空数组会返回错误，其余不一致都退化为默认值。
func Normalize(v any, stamp model.Stamp) (Result, error) {
	var res Result
	note := func(a Anomaly) { res.Anomalies = append(res.Anomalies, a) }

	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return Result{}, ErrEmptyList
		}
		note(AnomalyListWrapped)
		v = list[0]
	}

	obj, ok := v.(map[string]any)
	if !ok {
		note(AnomalyNonObject)
		obj = wrapIrregular(v)
	}

	for _, a := range aliases {
		if _, has := obj[a.to]; has {
			continue
		}
		if val, has := obj[a.from]; has {
			obj[a.to] = val
			note(aliasAnomaly(a.from, a.to))
		}
	}

	e := model.Entry{
		Titles:   localizedOr(obj, keyTitles, DefaultTitles, note),
		Contents: localizedOr(obj, keyContents, DefaultContents, note),
		Mermaid:  localizedOr(obj, keyMermaid, DefaultMermaid, note),
		Glossary: glossary(obj, note),
	}

	if raw, has := obj[keyDescriptions]; has {
		if d, ok := localized(raw); ok {
			e.Descriptions = &d
		} else {
			note(malformedAnomaly(keyDescriptions))
		}
	}

	if suppliedIdentity(obj, stamp) {
		note(AnomalyIdentityOverridden)
	}
	stamp.Apply(&e)

	res.Entry = e
	return res, nil
}

func wrapIrregular(v any) map[string]any {
	s := stringify(v)
	return map[string]any{
		keyTitles:   map[string]any{"ja": s, "en": IrregularMarker + s},
		keyContents: map[string]any{"ja": s, "en": IrregularMarker + s},
	}
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimSpace(buf.String())
}

func localizedOr(obj map[string]any, key string, def model.LocalizedText, note func(Anomaly)) model.LocalizedText {
	raw, has := obj[key]
	if !has {
		note(defaultAnomaly(key))
		return def
	}
	t, ok := localized(raw)
	if !ok {
		note(malformedAnomaly(key))
		return def
	}
	return t
}

// localized 只接受对象形式；非字符串的语言值当作空串，交给校验器判断
func localized(v any) (model.LocalizedText, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return model.LocalizedText{}, false
	}
	ja, _ := m["ja"].(string)
	en, _ := m["en"].(string)
	return model.LocalizedText{JA: ja, EN: en}, true
}

func glossary(obj map[string]any, note func(Anomaly)) []model.GlossaryTerm {
	raw, has := obj[keyGlossary]
	if !has {
		note(defaultAnomaly(keyGlossary))
		return []model.GlossaryTerm{}
	}
	items, ok := raw.([]any)
	if !ok {
		note(malformedAnomaly(keyGlossary))
		return []model.GlossaryTerm{}
	}

	terms := make([]model.GlossaryTerm, 0, len(items))
	for _, it := range items {
		var g model.GlossaryTerm
		if m, ok := it.(map[string]any); ok {
			g.Term, _ = localized(m["term"])
			g.Def, _ = localized(m["def"])
		}
		terms = append(terms, g)
	}
	return terms
}

func suppliedIdentity(obj map[string]any, stamp model.Stamp) bool {
	id, hasID := obj[keyID]
	date, hasDate := obj[keyDate]
	if !hasID && !hasDate {
		return false
	}
	return (hasID && id != stamp.ID) || (hasDate && date != stamp.Date)
}
