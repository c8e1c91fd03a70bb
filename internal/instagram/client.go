// Package instagram implements the Instagram Graph API publish protocol:
// create a media container, poll it until processing finishes, then commit it
// as a live post.
package instagram

import (
	"context"
	"fmt"
	"time"

	"mindposter/internal/config"

	"github.com/go-resty/resty/v2"
)

// Container processing statuses reported by the Graph API.
const (
	statusFinished   = "FINISHED"
	statusInProgress = "IN_PROGRESS"
	statusError      = "ERROR"
)

type containerResponse struct {
	ID string `json:"id"`
}

type statusResponse struct {
	StatusCode string `json:"status_code"`
}

type accountResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Client is the HTTP client for the Instagram Graph API.
type Client struct {
	http      *resty.Client
	accountID string
	token     string
}

// NewClient creates a Graph API client from the application configuration.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(cfg.GraphAPIBase).
			SetTimeout(30 * time.Second),
		accountID: cfg.InstagramAccountID,
		token:     cfg.InstagramAccessToken,
	}
}

// CreateContainer stages a media container carrying the caption and a publicly
// reachable image URL. Returns the container id.
func (c *Client) CreateContainer(ctx context.Context, caption, imageURL string) (string, error) {
	var out containerResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"image_url":    imageURL,
			"caption":      caption,
			"access_token": c.token,
		}).
		SetResult(&out).
		Post(fmt.Sprintf("/%s/media", c.accountID))
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("media container request returned %s: %s", resp.Status(), resp.String())
	}
	if out.ID == "" {
		return "", fmt.Errorf("media container response missing id: %s", resp.String())
	}
	return out.ID, nil
}

// ContainerStatus queries the processing status of a staged container.
func (c *Client) ContainerStatus(ctx context.Context, containerID string) (string, error) {
	var out statusResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"fields":       "status_code",
			"access_token": c.token,
		}).
		SetResult(&out).
		Get(fmt.Sprintf("/%s", containerID))
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("container status request returned %s: %s", resp.Status(), resp.String())
	}
	return out.StatusCode, nil
}

// Commit publishes a finished container and returns the permanent Instagram post id.
func (c *Client) Commit(ctx context.Context, containerID string) (string, error) {
	var out containerResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"creation_id":  containerID,
			"access_token": c.token,
		}).
		SetResult(&out).
		Post(fmt.Sprintf("/%s/media_publish", c.accountID))
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("media publish request returned %s: %s", resp.Status(), resp.String())
	}
	if out.ID == "" {
		return "", fmt.Errorf("media publish response missing id: %s", resp.String())
	}
	return out.ID, nil
}

// ValidateCredentials checks that the configured token resolves the account.
// Used for a startup sanity check; failures are reported, not fatal.
func (c *Client) ValidateCredentials(ctx context.Context) (string, error) {
	if c.token == "" || c.accountID == "" {
		return "", fmt.Errorf("instagram credentials not configured")
	}

	var out accountResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"fields":       "id,username",
			"access_token": c.token,
		}).
		SetResult(&out).
		Get(fmt.Sprintf("/%s", c.accountID))
	if err != nil {
		return "", err
	}
	if resp.IsError() || out.Username == "" {
		return "", fmt.Errorf("credential validation failed: %s", resp.String())
	}
	return out.Username, nil
}
