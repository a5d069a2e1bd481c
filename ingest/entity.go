package ingest

import (
	"fmt"
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"

	"github.com/arjunhale/ctxgraph/helper"
)

// Candidate is a named entity surfaced from a chunk of text, not yet
// resolved to a model.Node. Resolution (dedup-by-name, id assignment)
// happens in Pipeline.Ingest, since the same name can recur across chunks
// and should collapse onto one node.
type Candidate struct {
	Name       string
	Type       string
	Confidence float64
}

// EntityExtractFunc surfaces the candidate entities mentioned in text.
type EntityExtractFunc func(text string) ([]Candidate, error)

// nuNERLabels is a zero-shot label set for NuNER/GLiNER models, which,
// unlike a fixed NER model's fixed tag set, accept an arbitrary label
// vocabulary at inference time. NERExtractor does not pass it to the
// pipeline.
var nuNERLabels = []string{
	"person", "job title", "group", "organization", "brand", "gpe",
	"location", "facility", "address", "date", "time", "monetary value",
	"percentage", "quantity", "product", "technology", "work of art",
	"concept", "ideology", "language", "feeling", "trait", "activity",
	"natural phenomenon", "event", "law", "medical condition", "email",
	"phonenumber",
}

// NERExtractor builds an EntityExtractFunc from a hugot token-classification
// model. basic uses KnightsAnalytics/distilbert-NER's fixed PERSON/ORG/LOC/
// MISC tag set; advanced loads NuNER_Zero with the same token-classification
// options, without the nuNERLabels vocabulary. Both share the same
// aggregation/dedup logic, only the model, ONNX file and pipeline name
// differ — matching the teacher's DefaultEntityExtractorBasic/
// DefaultEntityExtractorAdvanced split.
func NERExtractor(advanced bool) (EntityExtractFunc, error) {
	modelName, onnxFile, pipelineName := "KnightsAnalytics/distilbert-NER", "model.onnx", "ner-pipeline"
	if advanced {
		modelName, onnxFile, pipelineName = "onnx-community/NuNER_Zero", "onnx/model.onnx", "nuner-pipeline"
	}

	modelPath, err := helper.PrepareModel(modelName, onnxFile)
	if err != nil {
		return nil, fmt.Errorf("ingest: prepare NER model: %w", err)
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("ingest: create hugot session: %w", err)
	}

	config := hugot.TokenClassificationConfig{
		ModelPath: modelPath,
		Name:      pipelineName,
		Options: []hugot.TokenClassificationOption{
			pipelines.WithSimpleAggregation(),
			pipelines.WithIgnoreLabels([]string{"O"}),
		},
	}
	nerPipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("ingest: create NER pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("ingest: create NER pipeline: %w", err)
	}

	return func(text string) ([]Candidate, error) {
		result, err := nerPipeline.RunPipeline([]string{text})
		if err != nil {
			return nil, fmt.Errorf("ingest: run NER: %w", err)
		}
		if len(result.Entities) == 0 {
			return nil, nil
		}

		byKey := make(map[string]Candidate)
		for _, e := range result.Entities[0] {
			name := strings.TrimSpace(e.Word)
			if !isValidEntityName(name) {
				continue
			}
			entityType := normalizeEntityType(e.Entity)
			key := strings.ToLower(name) + "|" + entityType

			if existing, ok := byKey[key]; !ok || float64(e.Score) > existing.Confidence {
				byKey[key] = Candidate{Name: name, Type: entityType, Confidence: float64(e.Score)}
			}
		}

		out := make([]Candidate, 0, len(byKey))
		for _, c := range byKey {
			out = append(out, c)
		}
		return out, nil
	}, nil
}

func isValidEntityName(name string) bool {
	if len(name) < 2 || strings.HasPrefix(name, "#") {
		return false
	}
	cleaned := strings.TrimFunc(name, func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'))
	})
	return len(cleaned) >= 2
}

func normalizeEntityType(label string) string {
	switch {
	case strings.HasPrefix(label, "B-"), strings.HasPrefix(label, "I-"):
		return label[2:]
	default:
		return label
	}
}
