package onnx

import (
	"context"
	"fmt"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"golang.org/x/sync/semaphore"
)

// CrossEncoder scores query/passage relevance with a local cross-encoder
// classification model. Lifecycle mirrors DenseEmbedder: lazy singleton,
// at-most-once construction. A semaphore caps concurrent scoring calls so
// parallel queries do not oversubscribe the math kernels.
type CrossEncoder struct {
	modelName   string
	cacheDir    string
	parallelism int64

	once     sync.Once
	initErr  error
	session  *hugot.Session
	pipeline *pipelines.TextClassificationPipeline
	slots    *semaphore.Weighted
}

func NewCrossEncoder(modelName, cacheDir string, parallelism int) *CrossEncoder {
	if parallelism <= 0 {
		parallelism = 1
	}
	return &CrossEncoder{
		modelName:   modelName,
		cacheDir:    cacheDir,
		parallelism: int64(parallelism),
	}
}

func (r *CrossEncoder) init() error {
	r.once.Do(func() {
		modelPath, err := prepareModel(r.modelName, r.cacheDir)
		if err != nil {
			r.initErr = err
			return
		}

		session, err := hugot.NewGoSession()
		if err != nil {
			r.initErr = fmt.Errorf("create inference session: %w", err)
			return
		}

		pipeline, err := hugot.NewPipeline(session, hugot.TextClassificationConfig{
			ModelPath: modelPath,
			Name:      "cross-encoder-reranker",
		})
		if err != nil {
			if destroyErr := session.Destroy(); destroyErr != nil {
				r.initErr = fmt.Errorf("create reranker pipeline: %w (cleanup: %v)", err, destroyErr)
				return
			}
			r.initErr = fmt.Errorf("create reranker pipeline: %w", err)
			return
		}

		r.session = session
		r.pipeline = pipeline
		r.slots = semaphore.NewWeighted(r.parallelism)
	})
	return r.initErr
}

// Score runs one batched classification call over all pairs and returns a
// relevance score per passage, in input order.
func (r *CrossEncoder) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	if len(passages) == 0 {
		return nil, nil
	}
	if err := r.init(); err != nil {
		return nil, err
	}

	if err := r.slots.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer r.slots.Release(1)

	pairs := make([]string, len(passages))
	for i, passage := range passages {
		pairs[i] = query + " [SEP] " + passage
	}

	result, err := r.pipeline.RunPipeline(pairs)
	if err != nil {
		return nil, fmt.Errorf("run reranker pipeline: %w", err)
	}
	if len(result.ClassificationOutputs) != len(passages) {
		return nil, fmt.Errorf("reranker returned %d outputs for %d pairs", len(result.ClassificationOutputs), len(passages))
	}

	scores := make([]float64, len(passages))
	for i, outputs := range result.ClassificationOutputs {
		if len(outputs) == 0 {
			return nil, fmt.Errorf("reranker returned no score for pair %d", i)
		}
		scores[i] = float64(outputs[0].Score)
	}
	return scores, nil
}

func (r *CrossEncoder) Close() error {
	if r.session == nil {
		return nil
	}
	return r.session.Destroy()
}
