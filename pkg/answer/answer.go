// Package answer 负责问答服务回答文本的编码与解析。
//
// 回答在存储中始终是一段纯文本：正文之后可选地跟随来源列表和置信度，
// 两者都以固定的标记文本分隔。Format 生成这种文本，Parse 将其拆回三部分。
package answer

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"fsdm-chat-go/internal/model"
)

const (
	// SourcesMarker 引出来源列表，之后每行一个以 Bullet 开头的来源。
	SourcesMarker = "📚 Sources consultées :"
	// ConfidenceMarker 引出百分比形式的置信度。
	ConfidenceMarker = "🎯 Confiance : "
	// Bullet 是来源行的前缀。
	Bullet = "•"

	// NoAnswerText 在服务返回空回答时使用。
	NoAnswerText = "Je n'ai pas pu trouver de réponse spécifique à votre question."
)

var confidencePattern = regexp.MustCompile(`🎯 Confiance : (\d+)%`)

// Parsed 是从原始回答文本中解析出的结构化内容。
type Parsed struct {
	MainText          string   `json:"mainText"`
	Sources           []string `json:"sources"`
	ConfidencePercent *int     `json:"confidencePercent,omitempty"`
}

// Format 将结构化回答线性化为单段文本。confidence 为 nil 时不输出置信度。
func Format(answer string, sources []string, confidence *float64) string {
	var b strings.Builder
	if answer == "" {
		answer = NoAnswerText
	}
	b.WriteString(answer)

	if len(sources) > 0 {
		b.WriteString("\n\n")
		b.WriteString(SourcesMarker)
		for _, src := range sources {
			b.WriteString("\n")
			b.WriteString(Bullet)
			b.WriteString(" ")
			b.WriteString(src)
		}
	}

	if confidence != nil {
		b.WriteString("\n\n")
		b.WriteString(ConfidenceMarker)
		b.WriteString(strconv.Itoa(Percent(*confidence)))
		b.WriteString("%")
	}
	return b.String()
}

// Percent 把 [0,1] 区间的置信度转换为整数百分比，0.5 向上取整。
func Percent(confidence float64) int {
	return int(math.Floor(confidence*100 + 0.5))
}

// Parse 解析原始回答文本，任何输入都不会失败：缺失的部分返回零值。
func Parse(raw string) Parsed {
	p := Parsed{Sources: []string{}}

	if idx := strings.Index(raw, SourcesMarker); idx >= 0 {
		p.MainText = strings.TrimSpace(raw[:idx])
		for _, line := range strings.Split(raw[idx+len(SourcesMarker):], "\n") {
			line = strings.TrimSpace(line)
			if !strings.HasPrefix(line, Bullet) {
				continue
			}
			line = strings.TrimPrefix(line, Bullet)
			line = strings.TrimPrefix(line, " ")
			p.Sources = append(p.Sources, line)
		}
	} else {
		p.MainText = strings.TrimSpace(raw)
	}

	// 置信度独立于正文提取，在整段文本中查找
	if m := confidencePattern.FindStringSubmatch(raw); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 0 && n <= 100 {
			p.ConfidencePercent = &n
		}
	}
	return p
}

// ParseMessage 只解析机器人消息，用户消息返回 nil。
func ParseMessage(m model.Message) *Parsed {
	if !m.IsBot() {
		return nil
	}
	p := Parse(m.Content)
	return &p
}
