package helper

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knights-analytics/hugot"
)

// PrepareModel downloads modelName into ./models if it isn't already
// present, and returns the local path. Slashes in modelName (organization
// prefixes) are replaced with underscores so the path is a single path
// segment. onnxFilePath selects which ONNX file inside the model repo to
// fetch; it is only consulted on a fresh download.
func PrepareModel(modelName, onnxFilePath string) (string, error) {
	modelDir := "./models"
	sanitized := strings.ReplaceAll(modelName, "/", "_")
	modelPath := filepath.Join(modelDir, sanitized)

	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		if err := os.MkdirAll(modelDir, 0750); err != nil {
			return "", fmt.Errorf("failed to create model directory: %w", err)
		}
		downloadOptions := hugot.NewDownloadOptions()
		downloadOptions.OnnxFilePath = onnxFilePath
		downloadedPath, err := hugot.DownloadModel(modelName, modelDir, downloadOptions)
		if err != nil {
			return "", fmt.Errorf("failed to download model: %w", err)
		}
		modelPath = downloadedPath
	}

	return modelPath, nil
}
