package extract

import (
	"encoding/json"
	"errors"
	"strings"
)

const fence = "```"

// ErrNotFound 输出中找不到 JSON 片段
var ErrNotFound = errors.New("extract: no json object in generator output")

// Candidate 从生成器输出中截取到的 JSON 片段
type Candidate struct {
	Text string
	// Fenced 输入带有 markdown 代码块标记
	Fenced bool
	// Unbalanced 字符串感知的括号计数不平衡，通常是字符串值里出现了未配对的 '}'
	// 只用于人工复查，不影响解析流程
	Unbalanced bool
}

// Extract 取出生成器输出中的 JSON 对象
// 先去掉首尾空白和代码块标记，再取第一个 '{' 到最后一个 '}'（贪婪，不处理嵌套）。
// 去掉标记后整体是合法的 JSON 数组时保留列表，交给后续归一化处理列表包裹。
func Extract(raw string) (Candidate, error) {
	text, fenced := stripFence(strings.TrimSpace(raw))

	// 整体是合法的 JSON 数组时原样交给归一化，否则按对象截取
	if strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]") && json.Valid([]byte(text)) {
		return Candidate{Text: text, Fenced: fenced}, nil
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return Candidate{Fenced: fenced}, ErrNotFound
	}

	span := text[start : end+1]
	return Candidate{
		Text:       span,
		Fenced:     fenced,
		Unbalanced: !balanced(span),
	}, nil
}

// stripFence 去掉开头的 ```lang 与结尾的 ```，两者各自独立判断
func stripFence(s string) (string, bool) {
	fenced := false
	if strings.HasPrefix(s, fence) {
		fenced = true
		s = s[len(fence):]
		// 语言标记，例如 json / JSON / jsonc
		i := 0
		for i < len(s) && isTagByte(s[i]) {
			i++
		}
		s = s[i:]
	}
	if strings.HasSuffix(s, fence) {
		fenced = true
		s = s[:len(s)-len(fence)]
	}
	return strings.TrimSpace(s), fenced
}

func isTagByte(b byte) bool {
	return b == '-' || b == '_' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func balanced(s string) bool {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0 && !inString
}
