// Package edgarhttp is a reference collaborators.EdgarClient backed by
// SEC EDGAR's public submissions and full-text search JSON feeds
// (data.sec.gov, efts.sec.gov). The actual filing/XBRL parsing the
// original system does with the edgartools Python package is out of
// scope (spec §1) — this client only resolves filing references, the
// level GetRecentFilings/GetCurrentFilings/GetFilingsByDate need.
package edgarhttp

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

	"github.com/arkady/edgarflow/internal/collaborators"
)

// Client calls data.sec.gov directly. SEC requires every request to
// carry a contact identity in the User-Agent header.
type Client struct {
	httpClient *http.Client
	userAgent  string
	baseURL    string
}

// New builds a Client. contactEmail is sent as part of the User-Agent
// per SEC's fair-access policy (equivalent to the original's
// edgar_login/set_identity call).
func New(contactEmail string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		httpClient: httpClient,
		userAgent:  "edgarflow " + contactEmail,
		baseURL:    "https://data.sec.gov",
	}
}

type submissionsResponse struct {
	CIK     string   `json:"cik"`
	Name    string   `json:"name"`
	Tickers []string `json:"tickers"`
	Filings struct {
		Recent struct {
			AccessionNumber []string `json:"accessionNumber"`
			Form            []string `json:"form"`
			FilingDate      []string `json:"filingDate"`
		} `json:"recent"`
	} `json:"filings"`
}

// GetRecentFilings fetches the company's submissions feed and returns
// the most recent filings of form.
func (c *Client) GetRecentFilings(ctx context.Context, ticker, form string, count int) ([]collaborators.FilingRef, error) {
	cik, name, err := c.resolveCIK(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("resolve CIK for %s: %w", ticker, err)
	}

	sub, err := c.fetchSubmissions(ctx, cik)
	if err != nil {
		return nil, err
	}

	var out []collaborators.FilingRef
	for i, f := range sub.Filings.Recent.Form {
		if f != form {
			continue
		}
		filed, _ := time.Parse("2006-01-02", sub.Filings.Recent.FilingDate[i])
		out = append(out, collaborators.FilingRef{
			AccessionNumber: sub.Filings.Recent.AccessionNumber[i],
			FilingDate:      filed,
			Form:            f,
			CIK:             cik,
			CompanyName:     name,
		})
		if len(out) >= count {
			break
		}
	}
	return out, nil
}

// GetCurrentFilings fetches the global current-filings feed for form,
// used by the scheduler's optional bulk-discovery tick. SEC's
// full-text search API returns the most recent filings across all
// filers for a form type.
func (c *Client) GetCurrentFilings(ctx context.Context, form string) ([]collaborators.FilingRef, error) {
	return c.searchFullText(ctx, form, time.Time{}, time.Time{})
}

// GetFilingsByDate returns filings of form between from and to.
func (c *Client) GetFilingsByDate(ctx context.Context, form string, from, to time.Time) ([]collaborators.FilingRef, error) {
	return c.searchFullText(ctx, form, from, to)
}

type fullTextSearchResponse struct {
	Hits struct {
		Hits []struct {
			Source struct {
				CIK             []string `json:"ciks"`
				CompanyName     string   `json:"display_names"`
				FormType        string   `json:"form_type"`
				FileDate        string   `json:"file_date"`
				AccessionNumber string   `json:"adsh"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (c *Client) searchFullText(ctx context.Context, form string, from, to time.Time) ([]collaborators.FilingRef, error) {
	q := url.Values{}
	q.Set("forms", form)
	if !from.IsZero() {
		q.Set("dateRange", "custom")
		q.Set("startdt", from.Format("2006-01-02"))
	}
	if !to.IsZero() {
		q.Set("enddt", to.Format("2006-01-02"))
	}
	endpoint := "https://efts.sec.gov/LATEST/search-index?" + q.Encode()

	var resp fullTextSearchResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("full text search for %s: %w", form, err)
	}

	out := make([]collaborators.FilingRef, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		filed, _ := time.Parse("2006-01-02", h.Source.FileDate)
		cik := ""
		if len(h.Source.CIK) > 0 {
			cik = h.Source.CIK[0]
		}
		out = append(out, collaborators.FilingRef{
			AccessionNumber: h.Source.AccessionNumber,
			FilingDate:      filed,
			Form:            h.Source.FormType,
			CIK:             cik,
			CompanyName:     h.Source.CompanyName,
		})
	}
	return out, nil
}

func (c *Client) resolveCIK(ctx context.Context, ticker string) (cik, name string, err error) {
	var tickerMap map[string]struct {
		CIKStr int    `json:"cik_str"`
		Ticker string `json:"ticker"`
		Title  string `json:"title"`
	}
	if err := c.getJSON(ctx, "https://www.sec.gov/files/company_tickers.json", &tickerMap); err != nil {
		return "", "", err
	}
	upper := strings.ToUpper(ticker)
	for _, entry := range tickerMap {
		if entry.Ticker == upper {
			return fmt.Sprintf("%010d", entry.CIKStr), entry.Title, nil
		}
	}
	return "", "", fmt.Errorf("ticker %s not found", ticker)
}

func (c *Client) fetchSubmissions(ctx context.Context, cik string) (submissionsResponse, error) {
	var sub submissionsResponse
	endpoint := fmt.Sprintf("%s/submissions/CIK%s.json", c.baseURL, cik)
	if err := c.getJSON(ctx, endpoint, &sub); err != nil {
		return submissionsResponse{}, fmt.Errorf("fetch submissions for CIK%s: %w", cik, err)
	}
	return sub, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected status %s: %s", strconv.Itoa(resp.StatusCode), body)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
