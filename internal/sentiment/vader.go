package sentiment

import (
	"html"
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
	"github.com/russross/blackfriday/v2"
)

var (
	markdownLinkPattern = regexp.MustCompile(`\[(.*?)\]\((https?:\/\/[^\s\)]+)\)`)
	urlPattern          = regexp.MustCompile(`https?://\S+|www\.\S+`)
	htmlTagPattern      = regexp.MustCompile(`<[^>]*>`)
)

func RemoveLinks(input string) string {
	input = markdownLinkPattern.ReplaceAllString(input, "$1") // Keep only the text
	return urlPattern.ReplaceAllString(input, "")
}

func ConvertMarkdownToText(input string) string {
	output := blackfriday.Run([]byte(RemoveLinks(input)), blackfriday.WithNoExtensions())
	plain := htmlTagPattern.ReplaceAllString(string(output), " ")
	return strings.Join(strings.Fields(html.UnescapeString(plain)), " ")
}

// VaderClassifier labels text with the VADER lexicon. It needs no artifacts.
type VaderClassifier struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

func NewVaderClassifier() *VaderClassifier {
	return &VaderClassifier{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Score returns the compound polarity in [-1, 1].
func (v *VaderClassifier) Score(text string) float64 {
	return v.analyzer.PolarityScores(ConvertMarkdownToText(text)).Compound
}

// Classify maps a compound score >= 0 to Positive. Neutral text lands on the
// positive side so the label stays binary.
func (v *VaderClassifier) Classify(text string) (Label, error) {
	if v.Score(text) >= 0 {
		return Positive, nil
	}
	return Negative, nil
}

func (v *VaderClassifier) Engine() string { return "vader" }
