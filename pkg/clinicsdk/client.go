package clinicsdk

import (
	"net/http"
	"strings"
	"time"
)

// Client is a client for the clinic API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client with a 10s request timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Session returns a Session that authenticates with token.
func (c *Client) Session(token string) *Session {
	return &Session{client: c, token: token}
}

// Session carries a bearer token for authenticated calls.
type Session struct {
	client *Client
	token  string
}
