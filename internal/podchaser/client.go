// Package podchaser provides a client for the Podchaser GraphQL API,
// used to look up creator profiles for guest registry population.
package podchaser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mrmamen/podenrich/pkg/errors"
)

// DefaultBaseURL is the Podchaser GraphQL endpoint.
const DefaultBaseURL = "https://api.podchaser.com/graphql"

const requestTimeout = 10 * time.Second

// Creator is a person profile returned by a creator search.
type Creator struct {
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl"`
	URL      string `json:"url"`
}

// Client talks to the Podchaser GraphQL API using client-credentials
// authentication. Tokens are requested lazily on first use and reused for
// the lifetime of the client.
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client

	mu    sync.Mutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint. Used by tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Podchaser client from API credentials.
func New(apiKey, apiSecret string, opts ...Option) (*Client, error) {
	if apiKey == "" || apiSecret == "" {
		return nil, errors.ErrCredentialsRequired
	}
	c := &Client{
		baseURL:   DefaultBaseURL,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// accessToken returns a cached token or requests a new one with the
// CLIENT_CREDENTIALS grant.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return c.token, nil
	}

	mutation := fmt.Sprintf(`mutation {
  requestAccessToken(
    input: {
      grant_type: CLIENT_CREDENTIALS
      client_id: %q
      client_secret: %q
    }
  ) {
    access_token
  }
}`, c.apiKey, c.apiSecret)

	data, err := c.post(ctx, graphQLRequest{Query: mutation}, "")
	if err != nil {
		return "", err
	}

	var result struct {
		RequestAccessToken struct {
			AccessToken string `json:"access_token"`
		} `json:"requestAccessToken"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", errors.WrapParse("json", "podchaser token response", err)
	}
	if result.RequestAccessToken.AccessToken == "" {
		return "", &errors.APIError{
			Endpoint: c.baseURL,
			Message:  "no access token in response",
		}
	}

	c.token = result.RequestAccessToken.AccessToken
	return c.token, nil
}

// SearchCreator looks up a person by name and returns the best match.
// An exact name match (case-insensitive) wins over result ordering; when
// no result matches exactly, the first result is returned. A nil Creator
// with a nil error means the search came back empty.
func (c *Client) SearchCreator(ctx context.Context, name string) (*Creator, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	const query = `query SearchCreators($searchTerm: String!) {
  creators(searchTerm: $searchTerm, first: 5) {
    data {
      name
      imageUrl
      url
    }
  }
}`

	data, err := c.post(ctx, graphQLRequest{
		Query:     query,
		Variables: map[string]any{"searchTerm": name},
	}, token)
	if err != nil {
		return nil, err
	}

	var result struct {
		Creators struct {
			Data []Creator `json:"data"`
		} `json:"creators"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.WrapParse("json", "podchaser creator response", err)
	}

	creators := result.Creators.Data
	if len(creators) == 0 {
		return nil, nil
	}
	for i := range creators {
		if strings.EqualFold(creators[i].Name, name) {
			return &creators[i], nil
		}
	}
	return &creators[0], nil
}

// post executes one GraphQL request and returns the raw data payload.
func (c *Client) post(ctx context.Context, body graphQLRequest, token string) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.WrapParse("json", "podchaser request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.WrapIO("create", c.baseURL, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &errors.APIError{
			Endpoint: c.baseURL,
			Message:  "request failed",
			Err:      err,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WrapIO("read", c.baseURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &errors.APIError{
			Endpoint:   c.baseURL,
			StatusCode: resp.StatusCode,
			Message:    "unexpected status",
		}
	}

	var gql graphQLResponse
	if err := json.Unmarshal(raw, &gql); err != nil {
		return nil, errors.WrapParse("json", "podchaser response", err)
	}
	if len(gql.Errors) > 0 {
		return nil, &errors.APIError{
			Endpoint: c.baseURL,
			Message:  gql.Errors[0].Message,
		}
	}
	return gql.Data, nil
}
