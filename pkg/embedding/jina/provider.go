package jina

import (
	"bangla-rag-be/pkg/apperror"
	"bangla-rag-be/pkg/embedding"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type JinaProvider struct {
	apiKey  string
	baseURL string
	model   string
	dims    int
	client  *http.Client
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Task       string   `json:"task,omitempty"`
	Dimensions int      `json:"dimensions,omitempty"`
	Input      []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewJinaProvider defaults to the multilingual v3 model, which covers Bengali.
func NewJinaProvider(apiKey, model string, dimension int) *JinaProvider {
	if model == "" {
		model = "jina-embeddings-v3"
	}
	return &JinaProvider{
		apiKey:  apiKey,
		baseURL: "https://api.jina.ai/v1/embeddings",
		model:   model,
		dims:    dimension,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *JinaProvider) Name() string  { return "jina" }
func (p *JinaProvider) Model() string { return p.model }

// jinaTask maps Gemini task types onto Jina's retrieval adapters.
func jinaTask(taskType string) string {
	switch taskType {
	case embedding.TaskRetrievalDocument:
		return "retrieval.passage"
	case embedding.TaskRetrievalQuery, embedding.TaskQuestionAnswering:
		return "retrieval.query"
	default:
		return ""
	}
}

func (p *JinaProvider) Generate(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	jsonData, err := json.Marshal(embeddingRequest{
		Model:      p.model,
		Task:       jinaTask(taskType),
		Dimensions: p.dims,
		Input:      []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.apiKey))

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, apperror.NewProviderError(p.Name(), resp.StatusCode, string(bodyBytes))
	}

	var jinaResp embeddingResponse
	if err := json.Unmarshal(bodyBytes, &jinaResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if jinaResp.Error != nil {
		return nil, apperror.NewProviderError(p.Name(), 0, jinaResp.Error.Message)
	}
	if len(jinaResp.Data) == 0 {
		return nil, apperror.NewProviderError(p.Name(), 0, "empty embeddings")
	}

	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: jinaResp.Data[0].Embedding},
	}, nil
}
