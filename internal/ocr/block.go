package ocr

import (
	"math"
	"strconv"
	"strings"

	"github.com/anubis-ocr/gateway/internal/text"
)

// Block is one recognized word with its page geometry.
type Block struct {
	Text       string  `json:"text"`
	Left       int     `json:"left"`
	Top        int     `json:"top"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Confidence float64 `json:"confidence"`
}

// Token is a raw per-word record as reported by an engine. Values are kept
// as the engine printed them and are parsed by BuildBlocks.
type Token struct {
	Text       string
	Left       string
	Top        string
	Width      string
	Height     string
	Confidence string
}

// BuildBlocks converts engine tokens to blocks in engine order and returns the
// normalized space-joined text. Tokens whose text is blank are dropped.
func BuildBlocks(tokens []Token) ([]Block, string) {
	blocks := make([]Block, 0, len(tokens))
	words := make([]string, 0, len(tokens))

	for _, tok := range tokens {
		word := strings.TrimSpace(tok.Text)
		if word == "" {
			continue
		}

		blocks = append(blocks, Block{
			Text:       word,
			Left:       parseCoord(tok.Left),
			Top:        parseCoord(tok.Top),
			Width:      parseCoord(tok.Width),
			Height:     parseCoord(tok.Height),
			Confidence: parseConfidence(tok.Confidence),
		})
		words = append(words, word)
	}

	return blocks, text.Normalize(strings.Join(words, " "))
}

func parseConfidence(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0.0
	}
	return v
}

// parseCoord reads a coordinate as a float and truncates it toward zero.
func parseCoord(s string) int {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || v < 0 || v > math.MaxInt32 {
		return 0
	}
	return int(v)
}
