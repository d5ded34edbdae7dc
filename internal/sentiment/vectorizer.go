package sentiment

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"regexp"
	"sort"
	"strings"
)

const defaultTokenPattern = `(?u)\b\w\w+\b`

// SparseVector holds the non-zero columns of a feature row, indices ascending.
type SparseVector struct {
	Dim     int
	Indices []int
	Values  []float64
}

func (v SparseVector) IsZero() bool {
	return len(v.Indices) == 0
}

// VectorizerArtifact is the on-disk form of a fitted count / tf-idf vectorizer.
type VectorizerArtifact struct {
	Vocabulary   map[string]int `json:"vocabulary"`
	IDF          []float64      `json:"idf,omitempty"`
	NgramRange   [2]int         `json:"ngram_range"`
	Norm         string         `json:"norm"`
	UseIDF       bool           `json:"use_idf"`
	SublinearTF  bool           `json:"sublinear_tf"`
	Binary       bool           `json:"binary"`
	Lowercase    bool           `json:"lowercase"`
	TokenPattern string         `json:"token_pattern,omitempty"`
}

type TFIDFVectorizer struct {
	artifact VectorizerArtifact
	pattern  *regexp.Regexp
	minN     int
	maxN     int
}

func NewTFIDFVectorizer(a VectorizerArtifact) (*TFIDFVectorizer, error) {
	if len(a.Vocabulary) == 0 {
		return nil, errors.New("vectorizer vocabulary is empty")
	}
	if a.UseIDF && len(a.IDF) != len(a.Vocabulary) {
		return nil, fmt.Errorf("idf has %d weights for %d terms", len(a.IDF), len(a.Vocabulary))
	}
	for term, idx := range a.Vocabulary {
		if idx < 0 || idx >= len(a.Vocabulary) {
			return nil, fmt.Errorf("term %q has column %d outside vocabulary", term, idx)
		}
	}
	switch a.Norm {
	case "", "l1", "l2":
	default:
		return nil, fmt.Errorf("unsupported norm %q", a.Norm)
	}

	pattern := a.TokenPattern
	if pattern == "" {
		pattern = defaultTokenPattern
	}
	// RE2 has no unicode flag; \w is ascii which matches normalized input.
	re, err := regexp.Compile(strings.ReplaceAll(pattern, "(?u)", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid token pattern: %w", err)
	}

	minN, maxN := a.NgramRange[0], a.NgramRange[1]
	if minN == 0 && maxN == 0 {
		minN, maxN = 1, 1
	}
	if minN < 1 || maxN < minN {
		return nil, fmt.Errorf("invalid ngram range %v", a.NgramRange)
	}

	return &TFIDFVectorizer{artifact: a, pattern: re, minN: minN, maxN: maxN}, nil
}

func LoadVectorizer(path string) (*TFIDFVectorizer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vectorizer: %w", err)
	}
	var a VectorizerArtifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("failed to parse vectorizer: %w", err)
	}
	return NewTFIDFVectorizer(a)
}

func (v *TFIDFVectorizer) Dim() int {
	return len(v.artifact.Vocabulary)
}

func (v *TFIDFVectorizer) Transform(doc string) (SparseVector, error) {
	if v.artifact.Lowercase {
		doc = strings.ToLower(doc)
	}

	counts := make(map[int]float64)
	for _, term := range v.terms(doc) {
		if idx, ok := v.artifact.Vocabulary[term]; ok {
			counts[idx]++
		}
	}

	vec := SparseVector{Dim: v.Dim()}
	if len(counts) == 0 {
		return vec, nil
	}

	vec.Indices = make([]int, 0, len(counts))
	for idx := range counts {
		vec.Indices = append(vec.Indices, idx)
	}
	sort.Ints(vec.Indices)

	vec.Values = make([]float64, len(vec.Indices))
	for i, idx := range vec.Indices {
		tf := counts[idx]
		switch {
		case v.artifact.Binary:
			tf = 1
		case v.artifact.SublinearTF:
			tf = 1 + math.Log(tf)
		}
		if v.artifact.UseIDF {
			tf *= v.artifact.IDF[idx]
		}
		vec.Values[i] = tf
	}

	normalize(vec.Values, v.artifact.Norm)
	return vec, nil
}

func (v *TFIDFVectorizer) terms(doc string) []string {
	tokens := v.pattern.FindAllString(doc, -1)
	if v.minN == 1 && v.maxN == 1 {
		return tokens
	}

	var terms []string
	for n := v.minN; n <= v.maxN; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			terms = append(terms, strings.Join(tokens[i:i+n], " "))
		}
	}
	return terms
}

func normalize(values []float64, norm string) {
	var total float64
	switch norm {
	case "l2":
		for _, x := range values {
			total += x * x
		}
		total = math.Sqrt(total)
	case "l1":
		for _, x := range values {
			total += math.Abs(x)
		}
	default:
		return
	}
	if total == 0 {
		return
	}
	for i := range values {
		values[i] /= total
	}
}
