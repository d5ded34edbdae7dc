package sentiment

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

//go:embed stopwords_english.txt
var englishStopwords string

var nonLetterPattern = regexp.MustCompile(`[^a-zA-Z]`)

// Stopwords is a read-only set of lowercase words dropped before vectorizing.
type Stopwords map[string]struct{}

func (s Stopwords) Contains(word string) bool {
	_, ok := s[word]
	return ok
}

// EnglishStopwords returns the embedded NLTK English list.
func EnglishStopwords() Stopwords {
	sw, _ := ReadStopwords(strings.NewReader(englishStopwords))
	return sw
}

// ReadStopwords parses one word per line. Blank lines and lines starting with
// '#' are skipped.
func ReadStopwords(r io.Reader) (Stopwords, error) {
	sw := make(Stopwords)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sw[strings.ToLower(line)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stopwords: %w", err)
	}
	return sw, nil
}

// LoadStopwords reads the list at path, or the embedded English list when path
// is empty.
func LoadStopwords(path string) (Stopwords, error) {
	if path == "" {
		return EnglishStopwords(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open stopwords file: %w", err)
	}
	defer f.Close()
	return ReadStopwords(f)
}

// Normalize replaces every non-letter with a space, lowercases, splits on
// whitespace, drops stopwords and joins the rest with single spaces.
func Normalize(text string, stopwords Stopwords) string {
	text = nonLetterPattern.ReplaceAllString(text, " ")
	text = strings.ToLower(text)

	words := strings.Fields(text)
	kept := words[:0]
	for _, w := range words {
		if stopwords.Contains(w) {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}
