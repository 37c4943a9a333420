package translate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	json "github.com/goccy/go-json"
)

const googleEndpoint = "https://translation.googleapis.com/language/translate/v2"

var ErrNoAPIKey = errors.New("translation api key not set")

// GoogleTranslator calls the Cloud Translation v2 REST API.
type GoogleTranslator struct {
	Key      string
	Endpoint string
	Client   *http.Client
}

func NewGoogleTranslator(key string) *GoogleTranslator {
	return &GoogleTranslator{Key: key, Endpoint: googleEndpoint, Client: http.DefaultClient}
}

type googleRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
}

type googleResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText string `json:"translatedText"`
		} `json:"translations"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (g *GoogleTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	if g.Key == "" {
		return "", ErrNoAPIKey
	}
	body, err := json.Marshal(googleRequest{Q: text, Source: source, Target: target, Format: "text"})
	if err != nil {
		return "", err
	}
	endpoint := g.Endpoint + "?key=" + url.QueryEscape(g.Key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if out.Error != nil && out.Error.Message != "" {
			return "", fmt.Errorf("status %d: %s", resp.StatusCode, out.Error.Message)
		}
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	if len(out.Data.Translations) == 0 {
		return "", errors.New("empty translation response")
	}
	return out.Data.Translations[0].TranslatedText, nil
}
