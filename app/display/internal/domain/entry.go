package domain

import "github.com/iWorld-y/daily_brief/app/daily_brief/pkg/model"

// Entry 归档条目
type Entry = model.Entry

// EntrySummary 条目摘要信息
type EntrySummary struct {
	ID           string               `json:"id"`
	Date         string               `json:"date"`
	Titles       model.LocalizedText  `json:"titles"`
	Descriptions *model.LocalizedText `json:"descriptions,omitempty"`
	GlossarySize int                  `json:"glossary_size"`
	// Fallback 兜底条目，只有镜像库能提供
	Fallback bool `json:"fallback,omitempty"`
}

// Summarize 从完整条目生成摘要
func Summarize(e *Entry) *EntrySummary {
	return &EntrySummary{
		ID:           e.ID,
		Date:         e.Date,
		Titles:       e.Titles,
		Descriptions: e.Descriptions,
		GlossarySize: len(e.Glossary),
	}
}
