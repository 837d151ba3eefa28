// Package gist stores keeper documents as the files of one GitHub gist.
package gist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v75/github"

	"github.com/bnema/boxtoplay-keeper/internal/domain"
)

const DefaultAPIURL = "https://api.github.com/"

type Config struct {
	APIURL string
	GistID string
	Token  string
}

type Store struct {
	client *github.Client
	gistID string
}

func NewStore(cfg Config, httpClient *http.Client) (*Store, error) {
	if strings.TrimSpace(cfg.GistID) == "" {
		return nil, errors.New("gist id is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	client := github.NewClient(httpClient)
	client.UserAgent = "boxtoplay-keeper"
	if cfg.Token != "" {
		client = client.WithAuthToken(cfg.Token)
	}

	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	// go-github resolves endpoints against BaseURL and needs the slash.
	if !strings.HasSuffix(apiURL, "/") {
		apiURL += "/"
	}
	baseURL, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("parse gist api url: %w", err)
	}
	client.BaseURL = baseURL

	return &Store{client: client, gistID: cfg.GistID}, nil
}

func (s *Store) Fetch(ctx context.Context) (map[string]string, error) {
	gist, _, err := s.client.Gists.Get(ctx, s.gistID)
	if err != nil {
		return nil, fmt.Errorf("fetch gist: %w", classify(err))
	}

	files := make(map[string]string, len(gist.Files))
	for name, file := range gist.Files {
		content := file.GetContent()
		if truncated(file) {
			raw, err := s.fetchRaw(ctx, file.GetRawURL())
			if err != nil {
				return nil, fmt.Errorf("fetch raw gist file %q: %w", name, err)
			}
			content = raw
		}
		files[string(name)] = content
	}

	return files, nil
}

func (s *Store) Replace(ctx context.Context, name, content string) error {
	patch := &github.Gist{Files: map[github.GistFilename]github.GistFile{
		github.GistFilename(name): {Content: github.Ptr(content)},
	}}

	if _, _, err := s.client.Gists.Edit(ctx, s.gistID, patch); err != nil {
		return fmt.Errorf("update gist file %q: %w", name, classify(err))
	}
	return nil
}

// truncated reports whether the API cut the file content short. GitHub does
// that past one megabyte and leaves raw_url as the way to the full text.
func truncated(file github.GistFile) bool {
	return file.GetRawURL() != "" && file.GetSize() > len(file.GetContent())
}

func (s *Store) fetchRaw(ctx context.Context, rawURL string) (string, error) {
	request, err := s.client.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	var buf bytes.Buffer
	if _, err := s.client.Do(ctx, request, &buf); err != nil {
		return "", classify(err)
	}
	return buf.String(), nil
}

func classify(err error) error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return fmt.Errorf("%w: %w", domain.ErrMalformedDocument, err)
	}

	var apiErr *github.ErrorResponse
	if errors.As(err, &apiErr) && apiErr.Response != nil {
		switch apiErr.Response.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %w: %w", domain.ErrStoreUnavailable, domain.ErrDocumentNotFound, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %w: %w", domain.ErrStoreUnavailable, domain.ErrUnauthorized, err)
		}
	}

	return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
}
