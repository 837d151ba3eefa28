// Package serverstatus looks up public Minecraft server status through the
// mcsrvstat.us API.
package serverstatus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bnema/boxtoplay-keeper/internal/domain"
	"github.com/bnema/boxtoplay-keeper/internal/ports"
)

const DefaultBaseURL = "https://api.mcsrvstat.us/3"

type Client struct {
	http    *http.Client
	baseURL string
}

var _ ports.ServerStatusLookup = (*Client)(nil)

func NewClient(baseURL string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{http: client, baseURL: baseURL}
}

type statusPayload struct {
	Online   bool   `json:"online"`
	Hostname string `json:"hostname"`
	Version  string `json:"version"`
	Players  *struct {
		Online int `json:"online"`
		Max    int `json:"max"`
		List   []struct {
			Name string `json:"name"`
		} `json:"list"`
	} `json:"players"`
}

func (c *Client) Lookup(ctx context.Context, host string) (domain.ServerStatus, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return domain.ServerStatus{}, errors.New("server host is empty")
	}

	endpoint := c.baseURL + "/" + url.PathEscape(host)
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.ServerStatus{}, fmt.Errorf("create request: %w", err)
	}
	// mcsrvstat rejects requests without a user agent.
	request.Header.Set("User-Agent", "boxtoplay-keeper")
	request.Header.Set("Accept", "application/json")

	response, err := c.http.Do(request)
	if err != nil {
		return domain.ServerStatus{}, fmt.Errorf("perform request: %w", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, 1<<20))
	if err != nil {
		return domain.ServerStatus{}, fmt.Errorf("read response: %w", err)
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return domain.ServerStatus{}, fmt.Errorf("status %d: %s", response.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload statusPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.ServerStatus{}, fmt.Errorf("decode payload: %w", err)
	}

	status := domain.ServerStatus{
		Host:    host,
		Online:  payload.Online,
		Version: payload.Version,
	}
	if payload.Players != nil {
		status.PlayersOnline = payload.Players.Online
		status.PlayersMax = payload.Players.Max
		for _, player := range payload.Players.List {
			if player.Name != "" {
				status.Players = append(status.Players, player.Name)
			}
		}
	}

	return status, nil
}
