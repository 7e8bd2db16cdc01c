package phabricator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Conduit allows short bursts but throttles sustained traffic, so the
// client paces itself instead of tripping the server-side limit.
const requestsPerSecond = 5

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}
}

// ObjectURL builds the web URL for a monogrammed object, e.g.
// ObjectURL("D", 123) -> https://phab.example.com/D123.
func (c *Client) ObjectURL(prefix string, id int) string {
	return fmt.Sprintf("%s/%s%d", c.baseURL, prefix, id)
}

type conduitResponse struct {
	Result    json.RawMessage `json:"result"`
	ErrorCode string          `json:"error_code"`
	ErrorInfo string          `json:"error_info"`
}

// Call invokes a Conduit method with form-encoded parameters and
// decodes the result envelope into out (out may be nil).
func (c *Client) Call(ctx context.Context, method string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api.token", c.token)

	endpoint := c.baseURL + "/api/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var envelope conduitResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if envelope.ErrorCode != "" {
		return fmt.Errorf("conduit %s failed: %s (%s)", method, envelope.ErrorInfo, envelope.ErrorCode)
	}

	if out != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("failed to decode %s result: %w", method, err)
		}
	}

	return nil
}

// CallRaw invokes a Conduit method and returns the raw result, for
// adhoc use from the CLI.
func (c *Client) CallRaw(ctx context.Context, method string, params url.Values) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.Call(ctx, method, params, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

type revisionStatus struct {
	Value string `json:"value"`
}

type reviewerData struct {
	ReviewerPHID string `json:"reviewerPHID"`
	Status       string `json:"status"`
	IsBlocking   bool   `json:"isBlocking"`
}

type revisionData struct {
	ID     int    `json:"id"`
	PHID   string `json:"phid"`
	Fields struct {
		Title          string         `json:"title"`
		AuthorPHID     string         `json:"authorPHID"`
		RepositoryPHID string         `json:"repositoryPHID"`
		Status         revisionStatus `json:"status"`
		IsDraft        bool           `json:"isDraft"`
		DateModified   int64          `json:"dateModified"`
	} `json:"fields"`
	Attachments struct {
		Reviewers struct {
			Reviewers []reviewerData `json:"reviewers"`
		} `json:"reviewers"`
	} `json:"attachments"`
}

type revisionSearchResult struct {
	Data []revisionData `json:"data"`
}

// RevisionSearch runs differential.revision.search for a saved query
// key, bounded to revisions modified at or after the cutoff, with the
// reviewers attachment included.
func (c *Client) RevisionSearch(ctx context.Context, queryKey string, modifiedAfter time.Time) ([]revisionData, error) {
	params := url.Values{}
	params.Set("queryKey", queryKey)
	params.Set("constraints[modifiedStart]", strconv.FormatInt(modifiedAfter.Unix(), 10))
	params.Set("attachments[reviewers]", "1")

	var result revisionSearchResult
	if err := c.Call(ctx, "differential.revision.search", params, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

type userData struct {
	ID     int    `json:"id"`
	PHID   string `json:"phid"`
	Fields struct {
		Username string `json:"username"`
		RealName string `json:"realName"`
	} `json:"fields"`
}

type userSearchResult struct {
	Data []userData `json:"data"`
}

// UserSearch resolves user PHIDs in one batch call.
func (c *Client) UserSearch(ctx context.Context, phids []string) ([]userData, error) {
	params := url.Values{}
	for i, phid := range phids {
		params.Set(fmt.Sprintf("constraints[phids][%d]", i), phid)
	}

	var result userSearchResult
	if err := c.Call(ctx, "user.search", params, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

type repositoryData struct {
	ID     int    `json:"id"`
	PHID   string `json:"phid"`
	Fields struct {
		Name      string `json:"name"`
		ShortName string `json:"shortName"`
	} `json:"fields"`
}

type repositorySearchResult struct {
	Data []repositoryData `json:"data"`
}

// RepositorySearch resolves repository PHIDs in one batch call.
func (c *Client) RepositorySearch(ctx context.Context, phids []string) ([]repositoryData, error) {
	params := url.Values{}
	for i, phid := range phids {
		params.Set(fmt.Sprintf("constraints[phids][%d]", i), phid)
	}

	var result repositorySearchResult
	if err := c.Call(ctx, "diffusion.repository.search", params, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

type columnData struct {
	ID     int    `json:"id"`
	PHID   string `json:"phid"`
	Fields struct {
		Name string `json:"name"`
	} `json:"fields"`
}

type columnSearchResult struct {
	Data []columnData `json:"data"`
}

// ColumnSearch lists the workboard columns of a project. Conduit has
// no name constraint for columns; callers filter by name themselves.
func (c *Client) ColumnSearch(ctx context.Context, projectName string) ([]columnData, error) {
	params := url.Values{}
	params.Set("constraints[projects][0]", projectName)

	var result columnSearchResult
	if err := c.Call(ctx, "project.column.search", params, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

type taskData struct {
	ID     int    `json:"id"`
	PHID   string `json:"phid"`
	Fields struct {
		Name string `json:"name"`
	} `json:"fields"`
}

type taskSearchResult struct {
	Data []taskData `json:"data"`
}

// ManiphestSearch fetches a project's tasks, optionally restricted to
// workboard columns, sorted server-side per the order token.
func (c *Client) ManiphestSearch(ctx context.Context, projectName string, columnPHIDs []string, order string) ([]taskData, error) {
	params := url.Values{}
	params.Set("constraints[projects][0]", projectName)
	for i, phid := range columnPHIDs {
		params.Set(fmt.Sprintf("constraints[columnPHIDs][%d]", i), phid)
	}
	if order != "" {
		params.Set("order", order)
	}

	var result taskSearchResult
	if err := c.Call(ctx, "maniphest.search", params, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// WhoAmI returns the raw user record for the token's owner.
func (c *Client) WhoAmI(ctx context.Context) (json.RawMessage, error) {
	return c.CallRaw(ctx, "user.whoami", nil)
}
