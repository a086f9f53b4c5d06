package model

import (
	"strings"
	"time"
)

const (
	// IDLayout 条目 ID 的时间格式（秒级）
	IDLayout = "20060102_150405"
	// DateLayout 条目日期格式
	DateLayout = time.DateOnly
)

// LocalizedText 日英双语文本
type LocalizedText struct {
	JA string `json:"ja"`
	EN string `json:"en"`
}

// Complete 两种语言都非空（忽略空白）
func (t LocalizedText) Complete() bool {
	return strings.TrimSpace(t.JA) != "" && strings.TrimSpace(t.EN) != ""
}

// GlossaryTerm 术语表条目，term 必须与正文中的原文一致
type GlossaryTerm struct {
	Term LocalizedText `json:"term"`
	Def  LocalizedText `json:"def"`
}

// Entry 归档中的一篇双语解说文章
// 字段顺序即落盘时的 key 顺序，不要随意调整
type Entry struct {
	ID           string         `json:"id"`
	Date         string         `json:"date"`
	Titles       LocalizedText  `json:"titles"`
	Contents     LocalizedText  `json:"contents"`
	Mermaid      LocalizedText  `json:"mermaid"`
	Descriptions *LocalizedText `json:"descriptions,omitempty"`
	Glossary     []GlossaryTerm `json:"glossary"`
}

// History 归档序列，下标 0 为最新
type History []Entry

// Stamp 由调用方决定的身份字段，不信任生成器给出的值
type Stamp struct {
	ID   string
	Date string
}

// NewStamp 按给定时区生成 ID 与日期
func NewStamp(now time.Time, loc *time.Location) Stamp {
	if loc != nil {
		now = now.In(loc)
	}
	return Stamp{
		ID:   now.Format(IDLayout),
		Date: now.Format(DateLayout),
	}
}

// Apply 覆盖条目的 ID 与日期
func (s Stamp) Apply(e *Entry) {
	e.ID = s.ID
	e.Date = s.Date
}
