package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Provider generates vector embeddings from text.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Config holds embedding provider configuration.
type Config struct {
	Provider  string `json:"provider"` // "api" or "local"
	Endpoint  string `json:"endpoint"`
	Model     string `json:"model"`
	APIKey    string `json:"api_key"`
	Dimension int    `json:"dimension"`
}

// NewProvider picks an implementation based on cfg.Provider.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "api":
		return &apiProvider{cfg: cfg}, nil
	case "local", "":
		return &localProvider{cfg: cfg}, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// apiProvider talks to an OpenAI-compatible /embeddings endpoint.
type apiProvider struct {
	cfg Config
}

func (p *apiProvider) Dimension() int { return p.cfg.Dimension }

func (p *apiProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(map[string]any{
		"model": p.cfg.Model,
		"input": texts,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: marshal request: %w", err)
	}

	var result struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := postJSON(ctx, p.cfg.Endpoint+"/embeddings", p.cfg.APIKey, body, &result); err != nil {
		return nil, err
	}

	out := make([][]float32, len(result.Data))
	for i, d := range result.Data {
		out[i] = d.Embedding
	}
	return out, nil
}

// localProvider talks to an Ollama-compatible /api/embeddings endpoint,
// one text per request.
type localProvider struct {
	cfg Config
}

func (p *localProvider) Dimension() int { return p.cfg.Dimension }

func (p *localProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		body, err := json.Marshal(map[string]string{
			"model":  p.cfg.Model,
			"prompt": text,
		})
		if err != nil {
			return nil, fmt.Errorf("embedding: marshal request: %w", err)
		}
		var result struct {
			Embedding []float32 `json:"embedding"`
		}
		if err := postJSON(ctx, p.cfg.Endpoint+"/api/embeddings", "", body, &result); err != nil {
			return nil, err
		}
		out = append(out, result.Embedding)
	}
	return out, nil
}

func postJSON(ctx context.Context, url, apiKey string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("embedding: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("embedding: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("embedding: API returned status %d: %s", resp.StatusCode, string(respBody))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("embedding: decode response: %w", err)
	}
	return nil
}
