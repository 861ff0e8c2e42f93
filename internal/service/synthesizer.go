package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/archiva-labs/doclib/internal/telemetry"
)

const (
	// DefaultContextBudget is the approximate token budget for assembled context
	DefaultContextBudget = 3000
	// MaxConfidence caps reported confidence; the pipeline never claims certainty
	MaxConfidence = 0.95

	// NoContextAnswer is returned when retrieval finds nothing relevant
	NoContextAnswer = "I could not find relevant information in the document library to answer this question. Try rephrasing the question or adding documents that cover this topic."
)

// Generator defines the interface for answer generation
type Generator interface {
	Generate(ctx context.Context, question, contextText string) (text string, lowConfidence bool, err error)
	Model() string
}

// SynthesizerConfig tunes context assembly and confidence scoring
type SynthesizerConfig struct {
	ContextBudget int
	// Confidence weights. TopWeight rewards the best match, CountWeight
	// rewards corroboration across chunks, AvgWeight rewards overall
	// relevance. They should sum to 1.
	TopWeight      float32
	CountWeight    float32
	AvgWeight      float32
	CountSaturation int
	// LowConfidencePenalty scales confidence down when the generator
	// signals the context was insufficient
	LowConfidencePenalty float32
}

// DefaultSynthesizerConfig provides sane synthesis defaults
func DefaultSynthesizerConfig() SynthesizerConfig {
	return SynthesizerConfig{
		ContextBudget:        DefaultContextBudget,
		TopWeight:            0.5,
		CountWeight:          0.2,
		AvgWeight:            0.3,
		CountSaturation:      5,
		LowConfidencePenalty: 0.25,
	}
}

// Answer is the synthesized result for a question
type Answer struct {
	Text       string
	Confidence float32
	Sources    []ScoredChunk
	ModelUsed  string
	// Degraded is set when generation failed and the answer is a fallback
	Degraded bool
}

// Synthesizer assembles retrieved chunks into a prompt context, generates an
// answer, and scores confidence from the retrieval signal.
type Synthesizer struct {
	generator Generator
	cfg       SynthesizerConfig
}

// NewSynthesizer creates a new Synthesizer instance
func NewSynthesizer(generator Generator, cfg SynthesizerConfig) *Synthesizer {
	if cfg.ContextBudget <= 0 {
		cfg.ContextBudget = DefaultContextBudget
	}
	if cfg.CountSaturation <= 0 {
		cfg.CountSaturation = 5
	}
	if cfg.TopWeight <= 0 && cfg.CountWeight <= 0 && cfg.AvgWeight <= 0 {
		def := DefaultSynthesizerConfig()
		cfg.TopWeight = def.TopWeight
		cfg.CountWeight = def.CountWeight
		cfg.AvgWeight = def.AvgWeight
	}
	if cfg.LowConfidencePenalty <= 0 || cfg.LowConfidencePenalty > 1 {
		cfg.LowConfidencePenalty = 0.25
	}
	return &Synthesizer{generator: generator, cfg: cfg}
}

// Synthesize produces an answer from the question and retrieved chunks.
// With no chunks it returns a canned answer at zero confidence without
// calling the generator at all.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, chunks []ScoredChunk) (*Answer, error) {
	ctx, span := telemetry.StartSpan(ctx, "Synthesizer.Synthesize", telemetry.SpanAttributes{
		Operation: "synthesize",
	})
	defer span.End()

	if len(chunks) == 0 {
		return &Answer{
			Text:       NoContextAnswer,
			Confidence: 0,
			Sources:    []ScoredChunk{},
			ModelUsed:  s.generator.Model(),
		}, nil
	}

	used := s.fitBudget(chunks)
	contextText := buildContext(used)

	text, lowConfidence, err := s.generator.Generate(ctx, question, contextText)
	if err != nil {
		span.SetError(err)
		return &Answer{
			Text:       "The answer could not be generated at this time. The relevant passages are listed as sources.",
			Confidence: 0,
			Sources:    used,
			ModelUsed:  s.generator.Model(),
			Degraded:   true,
		}, nil
	}

	confidence := s.score(used)
	if lowConfidence {
		confidence *= s.cfg.LowConfidencePenalty
	}

	return &Answer{
		Text:       text,
		Confidence: confidence,
		Sources:    used,
		ModelUsed:  s.generator.Model(),
	}, nil
}

// fitBudget keeps the highest-ranked chunks that fit the context budget.
// Chunks are dropped whole from the tail, never truncated mid-chunk. The
// top chunk is always kept even when it alone exceeds the budget.
func (s *Synthesizer) fitBudget(chunks []ScoredChunk) []ScoredChunk {
	used := make([]ScoredChunk, 0, len(chunks))
	spent := 0
	for i, c := range chunks {
		cost := estimateTokens(c.Content)
		if i > 0 && spent+cost > s.cfg.ContextBudget {
			break
		}
		used = append(used, c)
		spent += cost
	}
	return used
}

// score combines the top similarity, corroboration count, and average
// similarity into a single confidence value capped below certainty.
func (s *Synthesizer) score(chunks []ScoredChunk) float32 {
	if len(chunks) == 0 {
		return 0
	}

	top := chunks[0].Score
	var sum float32
	for _, c := range chunks {
		sum += c.Score
	}
	avg := sum / float32(len(chunks))

	countFactor := float32(len(chunks)) / float32(s.cfg.CountSaturation)
	if countFactor > 1 {
		countFactor = 1
	}

	conf := s.cfg.TopWeight*top + s.cfg.CountWeight*countFactor + s.cfg.AvgWeight*avg
	if conf < 0 {
		conf = 0
	}
	if conf > MaxConfidence {
		conf = MaxConfidence
	}
	return conf
}

// estimateTokens approximates token count as one token per four characters
func estimateTokens(text string) int {
	n := len(text) / 4
	if n == 0 && text != "" {
		n = 1
	}
	return n
}

// buildContext renders chunks as numbered source blocks for the prompt
func buildContext(chunks []ScoredChunk) string {
	var b strings.Builder
	for i, c := range chunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		label := c.Filename
		if label == "" {
			label = c.DocumentID
		}
		fmt.Fprintf(&b, "[Source %d: %s, chunk %d]\n%s", i+1, label, c.ChunkIndex, c.Content)
	}
	return b.String()
}
