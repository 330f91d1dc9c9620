package warehouse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/eser/ajan/logfx"
	"github.com/google/go-querystring/query"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/bhaktiutama/vision-warehouse-logo-similarity/pkg/api/business/runs"
)

var (
	ErrOperationFailed  = errors.New("warehouse operation failed")
	ErrOperationTimeout = errors.New("timed out waiting for warehouse operation")
	ErrMissingResponse  = errors.New("warehouse operation finished without a response")
)

var _ runs.WarehouseProvider = (*Client)(nil)

// APIError is returned for non-2xx responses so callers can distinguish
// retryable statuses from permanent ones.
type APIError struct {
	StatusCode int
	Message    string
	RpcCode    int
}

func (e *APIError) Error() string {
	if e.RpcCode != 0 {
		return fmt.Sprintf("api request failed with status %d: %s (code: %d)", e.StatusCode, e.Message, e.RpcCode)
	}

	return fmt.Sprintf("api request failed with status %d: %s", e.StatusCode, e.Message)
}

// Client is the Vision Warehouse API client.
type Client struct {
	config      *Config
	httpClient  *http.Client
	tokenSource oauth2.TokenSource
	limiter     *rate.Limiter
	logger      *logfx.Logger
}

// NewClient creates a new Vision Warehouse API client. The token source may
// be nil when a static API token is configured.
func NewClient(config *Config, tokenSource oauth2.TokenSource, logger *logfx.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultWarehouseHost
	}

	var limiter *rate.Limiter
	if config.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1)
	}

	return &Client{
		config:      config,
		tokenSource: tokenSource,
		limiter:     limiter,
		logger:      logger,
		httpClient:  &http.Client{Timeout: config.Timeout},
	}
}

// parentPath returns the base path for project and location scoped resources.
func (c *Client) parentPath() string {
	return fmt.Sprintf("/projects/%s/locations/%s", c.config.ProjectNumber, c.config.Location)
}

func (c *Client) newRequest(ctx context.Context, method string, path string, body io.Reader) (*http.Request, error) {
	reqURL := c.config.BaseURL + path

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	token := c.config.APIToken
	if token == "" && c.tokenSource != nil {
		oauthToken, tokenErr := c.tokenSource.Token()
		if tokenErr != nil {
			return nil, fmt.Errorf("failed to obtain access token: %w", tokenErr)
		}

		token = oauthToken.AccessToken
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	return req, nil
}

func (c *Client) doOnce(ctx context.Context, method string, path string, body any) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait canceled: %w", err)
		}
	}

	var reqBody io.Reader

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}

		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := c.newRequest(ctx, method, path, reqBody)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Attempt to parse as GoogleRpcStatus for better error messages
		var googleErr struct {
			Error GoogleRpcStatus `json:"error"`
		}
		if json.Unmarshal(respBody, &googleErr) == nil && googleErr.Error.Message != "" {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: googleErr.Error.Message, RpcCode: googleErr.Error.Code}
		}

		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	return respBody, nil
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}

	// Transport-level failures are worth another attempt.
	return true
}

// call issues the request with bounded retries per the configured policy.
// Only the successful attempt's body is decoded into out, so a retried call
// never carries fields over from an earlier response.
func (c *Client) call(ctx context.Context, method string, path string, body any, out any) error {
	maxAttempts := c.config.RetryPolicy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			c.logger.WarnContext(ctx, "[Warehouse] Request failed, retrying", "module", "warehouse", "method", method, "path", path, "attempt", attempt, "maxAttempts", maxAttempts, "error", lastErr)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.config.RetryPolicy.BackoffPeriod):
			}
		}

		respBody, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			if out == nil || len(respBody) == 0 {
				return nil
			}

			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}

			return nil
		}

		lastErr = err

		if !isRetryable(err) {
			return err
		}
	}

	return fmt.Errorf("request failed after %d attempts: %w", maxAttempts, lastErr)
}

// lastSegment extracts the trailing identifier from a resource name such as
// projects/{p}/locations/{l}/corpora/{id}. Identifiers are otherwise opaque.
func lastSegment(resourceName string) string {
	segments := strings.Split(resourceName, "/")

	return segments[len(segments)-1]
}

// GetOperation retrieves a long-running operation by its full resource name.
func (c *Client) GetOperation(ctx context.Context, operationName string) (*Operation, error) {
	var operation Operation

	err := c.call(ctx, http.MethodGet, "/"+operationName, nil, &operation)
	if err != nil {
		return nil, err
	}

	return &operation, nil
}

// WaitOperation polls the operation until it is done or the configured poll
// timeout elapses.
func (c *Client) WaitOperation(ctx context.Context, operationName string) (*Operation, error) {
	deadline := time.Now().Add(c.config.OperationPollTimeout)

	for {
		operation, err := c.GetOperation(ctx, operationName)
		if err != nil {
			return nil, err
		}

		if operation.Done {
			return operation, nil
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrOperationTimeout, operationName)
		}

		c.logger.DebugContext(ctx, "[Warehouse] Operation still running", "module", "warehouse", "operationName", operationName)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.config.OperationPollInterval):
		}
	}
}

// resolveOperation waits for the operation when it is still running and
// unmarshals its embedded response into out. Operations that already carry
// their response are resolved without a second round-trip.
func (c *Client) resolveOperation(ctx context.Context, operation *Operation, out any) error {
	if !operation.Done {
		waited, err := c.WaitOperation(ctx, operation.Name)
		if err != nil {
			return err
		}

		operation = waited
	}

	if operation.Error != nil {
		return fmt.Errorf("%w: %s (code: %d)", ErrOperationFailed, operation.Error.Message, operation.Error.Code)
	}

	if out == nil {
		return nil
	}

	if len(operation.Response) == 0 {
		return fmt.Errorf("%w: %s", ErrMissingResponse, operation.Name)
	}

	if err := json.Unmarshal(operation.Response, out); err != nil {
		return fmt.Errorf("failed to decode operation response: %w", err)
	}

	return nil
}

// CreateCorpus creates a corpus for image storage.
func (c *Client) CreateCorpus(ctx context.Context) (*Corpus, error) {
	path := fmt.Sprintf("%s/corpora", c.parentPath())

	body := Corpus{
		DisplayName: c.config.CorpusDisplayName,
		Description: c.config.CorpusDescription,
		Type:        CorpusTypeImage,
		SearchCapabilitySetting: &SearchCapabilitySetting{
			SearchCapabilities: SearchCapability{Type: SearchCapabilityEmbedding},
		},
	}

	var operation Operation

	err := c.call(ctx, http.MethodPost, path, body, &operation)
	if err != nil {
		return nil, err
	}

	var corpus Corpus

	err = c.resolveOperation(ctx, &operation, &corpus)
	if err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "[Warehouse] Corpus created", "module", "warehouse", "corpusName", corpus.Name)

	return &corpus, nil
}

// ListCorpora lists corpora for the configured project and location.
func (c *Client) ListCorpora(ctx context.Context, params *ListCorporaParams) (*ListCorporaResponse, error) {
	path := fmt.Sprintf("%s/corpora", c.parentPath())

	if params != nil {
		qValues, err := query.Values(params)
		if err != nil {
			return nil, fmt.Errorf("failed to encode query params: %w", err)
		}

		if qValues.Encode() != "" {
			path = path + "?" + qValues.Encode()
		}
	}

	var response ListCorporaResponse

	err := c.call(ctx, http.MethodGet, path, nil, &response)
	if err != nil {
		return nil, err
	}

	return &response, nil
}

// EnsureCorpus reuses an existing corpus with the configured display name or
// creates one, and returns its identifier.
func (c *Client) EnsureCorpus(ctx context.Context) (string, error) {
	c.logger.DebugContext(ctx, "[Warehouse] EnsureCorpus is looking for an existing corpus", "module", "warehouse", "displayName", c.config.CorpusDisplayName)

	var pageToken *string

	for {
		response, err := c.ListCorpora(ctx, &ListCorporaParams{PageToken: pageToken})
		if err != nil {
			return "", err
		}

		for _, corpus := range response.Corpora {
			if corpus.DisplayName == c.config.CorpusDisplayName {
				c.logger.InfoContext(ctx, "[Warehouse] Reusing existing corpus", "module", "warehouse", "corpusName", corpus.Name)

				return lastSegment(corpus.Name), nil
			}
		}

		if response.NextPageToken == "" {
			break
		}

		pageToken = &response.NextPageToken
	}

	corpus, err := c.CreateCorpus(ctx)
	if err != nil {
		return "", err
	}

	return lastSegment(corpus.Name), nil
}

// CreateAsset registers an uploaded image in the corpus and returns the
// asset identifier.
func (c *Client) CreateAsset(ctx context.Context, corpusID string, gcsURI string, displayName string) (string, error) {
	path := fmt.Sprintf("%s/corpora/%s/assets", c.parentPath(), corpusID)

	body := CreateAssetRequest{
		Asset: Asset{
			DisplayName: displayName,
			GcsURI:      gcsURI,
		},
	}

	var asset Asset

	err := c.call(ctx, http.MethodPost, path, body, &asset)
	if err != nil {
		return "", err
	}

	c.logger.DebugContext(ctx, "[Warehouse] Asset created", "module", "warehouse", "assetName", asset.Name, "gcsUri", gcsURI)

	return lastSegment(asset.Name), nil
}

// CreateIndex creates an index for similarity search over the corpus and
// returns its identifier once the operation finishes.
func (c *Client) CreateIndex(ctx context.Context, corpusID string) (string, error) {
	path := fmt.Sprintf("%s/corpora/%s/indexes", c.parentPath(), corpusID)

	body := Index{
		DisplayName: c.config.IndexDisplayName,
		IndexType:   IndexTypeVisualEmbedding,
	}

	var operation Operation

	err := c.call(ctx, http.MethodPost, path, body, &operation)
	if err != nil {
		return "", err
	}

	var index Index

	err = c.resolveOperation(ctx, &operation, &index)
	if err != nil {
		return "", err
	}

	c.logger.InfoContext(ctx, "[Warehouse] Index created", "module", "warehouse", "indexName", index.Name)

	return lastSegment(index.Name), nil
}

// CreateIndexEndpoint creates an endpoint the index can be deployed to and
// returns its identifier once the operation finishes.
func (c *Client) CreateIndexEndpoint(ctx context.Context, displayName string, description string) (string, error) {
	path := fmt.Sprintf("%s/indexEndpoints", c.parentPath())

	body := IndexEndpoint{
		DisplayName: displayName,
		Description: description,
	}

	var operation Operation

	err := c.call(ctx, http.MethodPost, path, body, &operation)
	if err != nil {
		return "", err
	}

	var endpoint IndexEndpoint

	err = c.resolveOperation(ctx, &operation, &endpoint)
	if err != nil {
		return "", err
	}

	c.logger.InfoContext(ctx, "[Warehouse] Index endpoint created", "module", "warehouse", "endpointName", endpoint.Name)

	return lastSegment(endpoint.Name), nil
}

// DeployIndex deploys the index to the endpoint and blocks until the
// deployment operation finishes.
func (c *Client) DeployIndex(ctx context.Context, endpointID string, corpusID string, indexID string) error {
	path := fmt.Sprintf("%s/indexEndpoints/%s:deployIndex", c.parentPath(), endpointID)

	body := DeployIndexRequest{
		DeployedIndex: DeployedIndex{
			Index: fmt.Sprintf("projects/%s/locations/%s/corpora/%s/indexes/%s", c.config.ProjectNumber, c.config.Location, corpusID, indexID),
		},
	}

	var operation Operation

	err := c.call(ctx, http.MethodPost, path, body, &operation)
	if err != nil {
		return err
	}

	err = c.resolveOperation(ctx, &operation, nil)
	if err != nil {
		return err
	}

	c.logger.InfoContext(ctx, "[Warehouse] Index deployed", "module", "warehouse", "endpointId", endpointID, "indexId", indexID)

	return nil
}

// FindNeighbors returns up to maxResults assets visually similar to the
// query image. Matching and ranking happen entirely server-side.
func (c *Client) FindNeighbors(ctx context.Context, endpointID string, queryURI string, maxResults int) ([]runs.Neighbor, error) {
	path := fmt.Sprintf("%s/indexEndpoints/%s:findNeighbors", c.parentPath(), endpointID)

	body := FindNeighborsRequest{
		QueryImage: QueryImage{GcsURI: queryURI},
		MaxResults: maxResults,
	}

	var response FindNeighborsResponse

	err := c.call(ctx, http.MethodPost, path, body, &response)
	if err != nil {
		return nil, err
	}

	neighbors := make([]runs.Neighbor, len(response.Neighbors))
	for i, neighbor := range response.Neighbors {
		neighbors[i] = runs.Neighbor{
			Asset: lastSegment(neighbor.Asset),
			Score: neighbor.Score,
		}
	}

	return neighbors, nil
}
