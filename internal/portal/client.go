// Package portal implements a thin client for the ArcGIS portal sharing
// REST API: content search, service publishing, item administration and
// user queries. Token acquisition is out of scope; the caller supplies a
// valid token and the client attaches it to every request.
package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dbailuk/arcgis-automation/internal/errors"
	"go.uber.org/zap"
)

// Default settings
const (
	DefaultTimeout  = 30 * time.Second // Timeout for content and admin calls
	restBasePath    = "/sharing/rest"
	maxSearchPages  = 20 // Upper bound on paged search requests
	defaultPageSize = 100
)

// Client is a session-bound portal API client. The username is resolved
// once at connect time and scopes all content operations.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	username   string
	log        *zap.SugaredLogger
}

// apiError is the error envelope the portal embeds in otherwise-200 responses.
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("portal error %d: %s", e.Code, e.Message)
}

// Option configures the client at construction time.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// Connect establishes a portal session: it validates the token by resolving
// the current user and returns a client scoped to that user. Any failure
// here is fatal to the run.
func Connect(ctx context.Context, portalURL, token string, log *zap.SugaredLogger, opts ...Option) (*Client, error) {
	if portalURL == "" || token == "" {
		return nil, fmt.Errorf("%w: portal URL and token are required", errors.ErrInvalidArgument)
	}

	c := &Client{
		baseURL:    strings.TrimRight(portalURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		log:        log,
	}
	for _, opt := range opts {
		opt(c)
	}

	var self struct {
		Username string    `json:"username"`
		Error    *apiError `json:"error"`
	}
	if err := c.get(ctx, "/community/self", nil, &self); err != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrPortalConnection, err.Error())
	}
	if self.Error != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrPortalConnection, self.Error.Error())
	}
	if self.Username == "" {
		return nil, fmt.Errorf("%w: token did not resolve to a user", errors.ErrPortalConnection)
	}

	c.username = self.Username
	c.log.Infow("Connected to ArcGIS Portal", "portal", c.baseURL, "user", c.username)
	return c, nil
}

// Username returns the account the session is bound to.
func (c *Client) Username() string {
	return c.username
}

// SearchItems runs a content search. Title and type filters are quoted the
// way the portal's Lucene-style query syntax expects.
func (c *Client) SearchItems(ctx context.Context, query SearchQuery) ([]Item, error) {
	var parts []string
	if query.Title != "" {
		parts = append(parts, fmt.Sprintf("title:%q", query.Title))
	}
	if query.Owner != "" {
		parts = append(parts, "owner:"+query.Owner)
	}
	if query.ItemType != "" {
		parts = append(parts, fmt.Sprintf("type:%q", query.ItemType))
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: search query is empty", errors.ErrInvalidArgument)
	}

	num := query.Max
	if num <= 0 {
		num = defaultPageSize
	}

	params := url.Values{}
	params.Set("q", strings.Join(parts, " AND "))
	params.Set("num", strconv.Itoa(num))

	var resp struct {
		Results []Item    `json:"results"`
		Error   *apiError `json:"error"`
	}
	if err := c.get(ctx, "/search", params, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrPortalResponse, resp.Error.Error())
	}
	return resp.Results, nil
}

// FindServices returns the current user's feature services with the exact
// given title. This is the existence query the reconcile workflow polls.
func (c *Client) FindServices(ctx context.Context, title string) ([]Item, error) {
	return c.SearchItems(ctx, SearchQuery{
		Title:    title,
		Owner:    c.username,
		ItemType: "Feature Service",
		Max:      10,
	})
}

// DeleteItem removes an item owned by the current user.
func (c *Client) DeleteItem(ctx context.Context, itemID string) error {
	var resp struct {
		Success bool      `json:"success"`
		Error   *apiError `json:"error"`
	}
	path := fmt.Sprintf("/content/users/%s/items/%s/delete", c.username, itemID)
	if err := c.post(ctx, path, nil, &resp); err != nil {
		return err
	}
	if resp.Error != nil {
		return fmt.Errorf("%w: %s", errors.ErrPortalOperation, resp.Error.Error())
	}
	if !resp.Success {
		return fmt.Errorf("%w: delete of item %s not confirmed", errors.ErrPortalOperation, itemID)
	}
	return nil
}

// PublishItem publishes a source item as a feature service under the given
// name. A (nil, nil) return means the portal accepted the call but produced
// no service; callers treat that as a name conflict.
func (c *Client) PublishItem(ctx context.Context, itemID, serviceName string) (*Item, error) {
	publishParams, err := json.Marshal(map[string]string{"name": serviceName})
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("fileType", "shapefile")
	form.Set("publishParameters", string(publishParams))

	var resp struct {
		Services []struct {
			ServiceItemID string    `json:"serviceItemId"`
			ServiceURL    string    `json:"serviceurl"`
			Type          string    `json:"type"`
			Error         *apiError `json:"error"`
		} `json:"services"`
		Error *apiError `json:"error"`
	}
	path := fmt.Sprintf("/content/users/%s/items/%s/publish", c.username, itemID)
	if err := c.post(ctx, path, form, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrPortalOperation, resp.Error.Error())
	}

	// The portal signals a same-name collision by returning an empty or
	// errored services array rather than a top-level error.
	if len(resp.Services) == 0 {
		return nil, nil
	}
	svc := resp.Services[0]
	if svc.ServiceItemID == "" || svc.Error != nil {
		return nil, nil
	}

	return &Item{
		ID:    svc.ServiceItemID,
		Title: serviceName,
		Type:  "Feature Service",
		URL:   svc.ServiceURL,
		Owner: c.username,
	}, nil
}

// UpdateItem applies metadata to a published item.
func (c *Client) UpdateItem(ctx context.Context, itemID string, update ItemUpdate) error {
	form := url.Values{}
	form.Set("tags", update.Tags)
	form.Set("description", update.Description)
	form.Set("categories", update.Categories)

	var resp struct {
		Success bool      `json:"success"`
		Error   *apiError `json:"error"`
	}
	path := fmt.Sprintf("/content/users/%s/items/%s/update", c.username, itemID)
	if err := c.post(ctx, path, form, &resp); err != nil {
		return fmt.Errorf("%w: %s", errors.ErrMetadataUpdate, err.Error())
	}
	if resp.Error != nil {
		return fmt.Errorf("%w: %s", errors.ErrMetadataUpdate, resp.Error.Error())
	}
	if !resp.Success {
		return fmt.Errorf("%w: update of item %s not confirmed", errors.ErrMetadataUpdate, itemID)
	}
	return nil
}

// UpdateServiceDefinition applies service-level settings through the admin
// endpoint of a feature service URL.
func (c *Client) UpdateServiceDefinition(ctx context.Context, serviceURL string, def ServiceDefinition) error {
	adminURL := adminServiceURL(serviceURL)
	if adminURL == "" {
		return fmt.Errorf("%w: cannot derive admin URL from %q", errors.ErrDefinitionUpdate, serviceURL)
	}

	defJSON, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("%w: %s", errors.ErrDefinitionUpdate, err.Error())
	}
	form := url.Values{}
	form.Set("updateDefinition", string(defJSON))

	var resp struct {
		Success bool      `json:"success"`
		Error   *apiError `json:"error"`
	}
	if err := c.postURL(ctx, adminURL+"/updateDefinition", form, &resp); err != nil {
		return fmt.Errorf("%w: %s", errors.ErrDefinitionUpdate, err.Error())
	}
	if resp.Error != nil {
		return fmt.Errorf("%w: %s", errors.ErrDefinitionUpdate, resp.Error.Error())
	}
	if !resp.Success {
		return fmt.Errorf("%w: definition update not confirmed", errors.ErrDefinitionUpdate)
	}
	return nil
}

// ShareItem sets item visibility. The portal expects explicit everyone/org
// booleans; private means both are false.
func (c *Client) ShareItem(ctx context.Context, itemID string, level ShareLevel) error {
	form := url.Values{}
	switch level {
	case ShareLevelPublic:
		form.Set("everyone", "true")
		form.Set("org", "false")
	case ShareLevelOrg:
		form.Set("everyone", "false")
		form.Set("org", "true")
	default:
		form.Set("everyone", "false")
		form.Set("org", "false")
	}

	var resp struct {
		Error *apiError `json:"error"`
	}
	path := fmt.Sprintf("/content/users/%s/items/%s/share", c.username, itemID)
	if err := c.post(ctx, path, form, &resp); err != nil {
		return fmt.Errorf("%w: %s", errors.ErrSharing, err.Error())
	}
	if resp.Error != nil {
		return fmt.Errorf("%w: %s", errors.ErrSharing, resp.Error.Error())
	}
	return nil
}

// adminServiceURL rewrites a public feature service URL to its admin
// counterpart, e.g. .../rest/services/Parcels/FeatureServer ->
// .../rest/admin/services/Parcels/FeatureServer.
func adminServiceURL(serviceURL string) string {
	const marker = "/rest/services/"
	idx := strings.Index(serviceURL, marker)
	if idx < 0 {
		return ""
	}
	return serviceURL[:idx] + "/rest/admin/services/" + serviceURL[idx+len(marker):]
}

// get issues a GET against a sharing REST path and decodes the JSON response.
func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("f", "json")
	params.Set("token", c.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+restBasePath+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

// post issues a form POST against a sharing REST path.
func (c *Client) post(ctx context.Context, path string, form url.Values, out interface{}) error {
	return c.postURL(ctx, c.baseURL+restBasePath+path, form, out)
}

// postURL issues a form POST against an absolute URL (admin endpoints live
// on the server host, not under the sharing API).
func (c *Client) postURL(ctx context.Context, fullURL string, form url.Values, out interface{}) error {
	if form == nil {
		form = url.Values{}
	}
	form.Set("f", "json")
	form.Set("token", c.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s", errors.ErrPortalResponse, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: HTTP status %d", errors.ErrPortalResponse, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s", errors.ErrPortalResponse, err.Error())
	}
	return nil
}
