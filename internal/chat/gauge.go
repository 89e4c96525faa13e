package chat

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/tiktoken-go/tokenizer"
)

// Gauge estimates the token cost of a message sequence.
type Gauge interface {
	Count(messages []Message) int
}

// AttachmentTokens is the flat cost charged per attached media file.
const AttachmentTokens = 256

// render joins messages into the "role: content" prompt that is measured.
func render(messages []Message) (string, int) {
	var b strings.Builder
	attachments := 0
	for i, m := range messages {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
		attachments += len(m.Attachments)
	}
	return b.String(), attachments
}

// TiktokenGauge counts cl100k_base tokens of the rendered prompt.
type TiktokenGauge struct {
	codec tokenizer.Codec
}

func NewTiktokenGauge() (*TiktokenGauge, error) {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, err
	}
	return &TiktokenGauge{codec: codec}, nil
}

func (g *TiktokenGauge) Count(messages []Message) int {
	prompt, attachments := render(messages)
	ids, _, err := g.codec.Encode(prompt)
	if err != nil {
		return EstimateGauge{}.Count(messages)
	}
	return len(ids) + attachments*AttachmentTokens
}

// EstimateGauge approximates tokens as one per four characters of the
// rendered prompt. It stands in when the encoding cannot be loaded.
type EstimateGauge struct{}

func (EstimateGauge) Count(messages []Message) int {
	prompt, attachments := render(messages)
	chars := utf8.RuneCountInString(prompt)
	return (chars+3)/4 + attachments*AttachmentTokens
}

var defaultGauge = sync.OnceValue(func() Gauge {
	g, err := NewTiktokenGauge()
	if err != nil {
		return EstimateGauge{}
	}
	return g
})

// DefaultGauge returns the shared tiktoken gauge, or EstimateGauge when the
// encoding failed to load.
func DefaultGauge() Gauge { return defaultGauge() }
