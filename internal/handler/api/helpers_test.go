//go:build unit

package api_test

import (
	"encoding/json"
	"io"
	"log/slog"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func jsonUnmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
