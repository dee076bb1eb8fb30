package onnx

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
)

// DenseEmbedder runs a local sentence-transformer model through the hugot
// ONNX runtime. The model is a process-wide singleton, constructed lazily
// on first use; steady-state embedding calls take no lock.
type DenseEmbedder struct {
	modelName string
	cacheDir  string

	once     sync.Once
	initErr  error
	session  *hugot.Session
	pipeline *pipelines.FeatureExtractionPipeline
}

func NewDenseEmbedder(modelName, cacheDir string) *DenseEmbedder {
	return &DenseEmbedder{modelName: modelName, cacheDir: cacheDir}
}

func (e *DenseEmbedder) init() error {
	e.once.Do(func() {
		modelPath, err := prepareModel(e.modelName, e.cacheDir)
		if err != nil {
			e.initErr = err
			return
		}

		session, err := hugot.NewGoSession()
		if err != nil {
			e.initErr = fmt.Errorf("create inference session: %w", err)
			return
		}

		pipeline, err := hugot.NewPipeline(session, hugot.FeatureExtractionConfig{
			ModelPath: modelPath,
			Name:      "dense-embedder",
		})
		if err != nil {
			if destroyErr := session.Destroy(); destroyErr != nil {
				e.initErr = fmt.Errorf("create embedding pipeline: %w (cleanup: %v)", err, destroyErr)
				return
			}
			e.initErr = fmt.Errorf("create embedding pipeline: %w", err)
			return
		}

		e.session = session
		e.pipeline = pipeline
	})
	return e.initErr
}

func (e *DenseEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *DenseEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := e.init(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := e.pipeline.RunPipeline(texts)
	if err != nil {
		return nil, fmt.Errorf("run embedding pipeline: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding pipeline returned %d vectors for %d texts", len(result.Embeddings), len(texts))
	}

	out := make([][]float32, len(result.Embeddings))
	for i, embedding := range result.Embeddings {
		out[i] = l2Normalize(embedding)
	}
	return out, nil
}

// Close releases the ONNX session. Safe to call when the model was never
// initialized.
func (e *DenseEmbedder) Close() error {
	if e.session == nil {
		return nil
	}
	return e.session.Destroy()
}

func l2Normalize(vector []float32) []float32 {
	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vector
	}
	norm := float32(math.Sqrt(sum))
	out := make([]float32, len(vector))
	for i, v := range vector {
		out[i] = v / norm
	}
	return out
}
