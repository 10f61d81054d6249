package portal

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/dbailuk/arcgis-automation/internal/errors"
)

// SearchUsers returns up to maxUsers accounts from the organization,
// following the portal's nextStart paging cursor.
func (c *Client) SearchUsers(ctx context.Context, maxUsers int) ([]User, error) {
	if maxUsers <= 0 {
		maxUsers = defaultPageSize
	}

	var users []User
	start := 1
	for page := 0; page < maxSearchPages && len(users) < maxUsers; page++ {
		num := defaultPageSize
		if remaining := maxUsers - len(users); remaining < num {
			num = remaining
		}

		params := url.Values{}
		params.Set("q", "*")
		params.Set("start", strconv.Itoa(start))
		params.Set("num", strconv.Itoa(num))

		var resp struct {
			Results   []User    `json:"results"`
			NextStart int       `json:"nextStart"`
			Error     *apiError `json:"error"`
		}
		if err := c.get(ctx, "/community/users", params, &resp); err != nil {
			return nil, err
		}
		if resp.Error != nil {
			return nil, fmt.Errorf("%w: %s", errors.ErrPortalResponse, resp.Error.Error())
		}

		users = append(users, resp.Results...)

		// nextStart of -1 marks the final page.
		if resp.NextStart <= 0 || len(resp.Results) == 0 {
			break
		}
		start = resp.NextStart
	}
	return users, nil
}

// UserGroups returns the titles of the groups a user belongs to.
func (c *Client) UserGroups(ctx context.Context, username string) ([]string, error) {
	var resp struct {
		Groups []struct {
			Title string `json:"title"`
		} `json:"groups"`
		Error *apiError `json:"error"`
	}
	if err := c.get(ctx, "/community/users/"+url.PathEscape(username), nil, &resp); err != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrUserLookup, err.Error())
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrUserLookup, resp.Error.Error())
	}

	titles := make([]string, 0, len(resp.Groups))
	for _, g := range resp.Groups {
		titles = append(titles, g.Title)
	}
	return titles, nil
}

// UserItemCount returns the number of root-level content items a user owns.
func (c *Client) UserItemCount(ctx context.Context, username string) (int, error) {
	var resp struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
		Error *apiError `json:"error"`
	}
	if err := c.get(ctx, "/content/users/"+url.PathEscape(username), nil, &resp); err != nil {
		return 0, fmt.Errorf("%w: %s", errors.ErrUserLookup, err.Error())
	}
	if resp.Error != nil {
		return 0, fmt.Errorf("%w: %s", errors.ErrUserLookup, resp.Error.Error())
	}
	return len(resp.Items), nil
}
