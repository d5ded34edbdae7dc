package sentiment

import (
	"fmt"
	"log/slog"
)

type Vectorizer interface {
	Transform(doc string) (SparseVector, error)
}

type Model interface {
	Predict(x SparseVector) (int, error)
}

// Classifier labels a single piece of raw text.
type Classifier interface {
	Classify(text string) (Label, error)
	Engine() string
}

// PredictSentiment normalizes text, vectorizes it and asks the model for a
// single class id. Errors from the vectorizer or model are returned as is.
func PredictSentiment(text string, model Model, vectorizer Vectorizer, stopwords Stopwords) (Label, error) {
	doc := Normalize(text, stopwords)

	features, err := vectorizer.Transform(doc)
	if err != nil {
		return Negative, err
	}

	class, err := model.Predict(features)
	if err != nil {
		return Negative, err
	}
	return LabelFromClass(class), nil
}

// ModelClassifier binds a fitted model, its vectorizer and a stopword set.
type ModelClassifier struct {
	model      Model
	vectorizer Vectorizer
	stopwords  Stopwords
}

func NewModelClassifier(model Model, vectorizer Vectorizer, stopwords Stopwords) *ModelClassifier {
	return &ModelClassifier{model: model, vectorizer: vectorizer, stopwords: stopwords}
}

func (c *ModelClassifier) Classify(text string) (Label, error) {
	return PredictSentiment(text, c.model, c.vectorizer, c.stopwords)
}

func (c *ModelClassifier) Engine() string { return "model" }

// LoadModelClassifier reads the model, vectorizer and stopword artifacts once.
func LoadModelClassifier(modelPath, vectorizerPath, stopwordsPath string) (*ModelClassifier, error) {
	vectorizer, err := LoadVectorizer(vectorizerPath)
	if err != nil {
		return nil, err
	}
	model, err := LoadModel(modelPath)
	if err != nil {
		return nil, err
	}

	type dimensioned interface{ Dim() int }
	if d, ok := model.(dimensioned); ok && d.Dim() != vectorizer.Dim() {
		return nil, fmt.Errorf("%w: model %d, vectorizer %d", ErrDimensionMismatch, d.Dim(), vectorizer.Dim())
	}

	stopwords, err := LoadStopwords(stopwordsPath)
	if err != nil {
		return nil, err
	}

	slog.Info("[Sentiment] Loaded model artifacts",
		slog.String("model", modelPath),
		slog.String("vectorizer", vectorizerPath),
		slog.Int("vocabulary", vectorizer.Dim()),
		slog.Int("stopwords", len(stopwords)))

	return NewModelClassifier(model, vectorizer, stopwords), nil
}
