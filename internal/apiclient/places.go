package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"kesurge.org/kesurge-web/internal/domain"
)

// PlaceFilters narrows GET /lugares. Zero values are omitted from the query.
type PlaceFilters struct {
	Category string
	Limit    int
	Order    string
}

func (f PlaceFilters) query() string {
	q := url.Values{}
	if c := strings.TrimSpace(f.Category); c != "" {
		q.Set("categoria", c)
	}
	if f.Limit > 0 {
		q.Set("limite", strconv.Itoa(f.Limit))
	}
	if o := strings.TrimSpace(f.Order); o != "" {
		q.Set("orden", o)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// Places lists places matching filters.
func (c *Client) Places(ctx context.Context, filters PlaceFilters) (domain.PlaceList, error) {
	var list domain.PlaceList
	if err := c.Request(ctx, "/lugares"+filters.query(), RequestOptions{}, &list); err != nil {
		return domain.PlaceList{}, err
	}
	if list.Places == nil {
		list.Places = []domain.Place{}
	}
	return list, nil
}

// Place fetches a single place by id.
func (c *Client) Place(ctx context.Context, id int) (domain.Place, error) {
	var place domain.Place
	if err := c.Request(ctx, "/lugares/"+strconv.Itoa(id), RequestOptions{}, &place); err != nil {
		return domain.Place{}, err
	}
	return place, nil
}

// Categories returns the number of places per category.
func (c *Client) Categories(ctx context.Context) (map[string]int, error) {
	var payload domain.CategoryCounts
	if err := c.Request(ctx, "/categorias", RequestOptions{}, &payload); err != nil {
		return nil, err
	}
	if payload.Categories == nil {
		payload.Categories = map[string]int{}
	}
	return payload.Categories, nil
}

// Stats returns the backend's aggregate statistics.
func (c *Client) Stats(ctx context.Context) (domain.Stats, error) {
	var stats domain.Stats
	if err := c.Request(ctx, "/estadisticas", RequestOptions{}, &stats); err != nil {
		return domain.Stats{}, err
	}
	return stats, nil
}

// RunScraper triggers a scraping run, limited to category when non-empty.
func (c *Client) RunScraper(ctx context.Context, category string) (domain.ScraperResult, error) {
	body := map[string]string{}
	if cat := strings.TrimSpace(category); cat != "" {
		body["categoria"] = cat
	}
	var result domain.ScraperResult
	if err := c.Request(ctx, "/scraper/ejecutar", RequestOptions{Method: http.MethodPost, Body: body}, &result); err != nil {
		return domain.ScraperResult{}, err
	}
	return result, nil
}
