package logs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/delta10/wcs-client/internal/config"
)

func NewLogBackend(backend config.LogBackend) *LogBackend {
	return &LogBackend{
		Config: backend,
		Client: &http.Client{Timeout: 5 * time.Second},
	}
}

// LogBackend pushes audit lines to a Loki compatible endpoint.
type LogBackend struct {
	Config config.LogBackend
	Client *http.Client
}

type Stream struct {
	Stream map[string]string `json:"stream"`
	Values [][]any           `json:"values"`
}

type Body struct {
	Streams []Stream `json:"streams"`
}

// WriteLog pushes line, encoded as JSON, to the stream identified by labels.
func (l *LogBackend) WriteLog(ctx context.Context, labels map[string]string, line map[string]string) error {
	parsedUrl, err := url.Parse(l.Config.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid log backend url: %w", err)
	}

	parsedUrl = parsedUrl.JoinPath("/api/v1/push")

	marshalledLine, err := json.Marshal(line)
	if err != nil {
		return err
	}

	body := Body{
		Streams: []Stream{
			{
				Stream: labels,
				Values: [][]any{
					{
						fmt.Sprint(time.Now().UnixNano()),
						string(marshalledLine),
					},
				},
			},
		},
	}

	marshalled, err := json.Marshal(body)
	if err != nil {
		return err
	}

	logRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, parsedUrl.String(), bytes.NewReader(marshalled))
	if err != nil {
		return err
	}

	logRequest.Header.Add("Content-Type", "application/json")

	logResponse, err := l.Client.Do(logRequest)
	if err != nil {
		return fmt.Errorf("could not push log entry: %w", err)
	}

	defer logResponse.Body.Close()

	if logResponse.StatusCode != http.StatusNoContent {
		return fmt.Errorf("could not create log entry: status %d", logResponse.StatusCode)
	}

	return nil
}
