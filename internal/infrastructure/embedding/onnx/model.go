package onnx

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knights-analytics/hugot"
)

// prepareModel downloads a HuggingFace model into cacheDir on first use
// and returns the local model path. Subsequent runs hit the cached copy.
func prepareModel(modelName, cacheDir string) (string, error) {
	modelPath := filepath.Join(cacheDir, strings.ReplaceAll(modelName, "/", "_"))

	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			return "", fmt.Errorf("create model cache dir: %w", err)
		}
		options := hugot.NewDownloadOptions()
		options.OnnxFilePath = "onnx/model.onnx"
		downloaded, err := hugot.DownloadModel(modelName, cacheDir, options)
		if err != nil {
			return "", fmt.Errorf("download model %s: %w", modelName, err)
		}
		modelPath = downloaded
	}

	return modelPath, nil
}
