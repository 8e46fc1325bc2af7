// Package extracthtml is a reference collaborators.DocumentExtractor
// that fetches a filing's full submission text file directly from EDGAR's
// Archives and splits it into sections by heading keyword. The
// original system's XBRL-aware statement extraction (edgartools'
// XBRL2 machinery) is out of scope (spec §1); this extractor only
// needs to produce plain-text sections good enough for the LLM
// collaborator to summarize.
package extracthtml

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/arkady/edgarflow/internal/collaborators"
)

// Extractor fetches raw filing documents over HTTP and heuristically
// splits them into the requested sections.
type Extractor struct {
	httpClient *http.Client
	userAgent  string
}

// New builds an Extractor. contactEmail is sent in the User-Agent the
// same way edgarhttp.Client does, since EDGAR's Archives host enforces
// the same fair-access policy as the submissions API.
func New(contactEmail string, httpClient *http.Client) *Extractor {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Extractor{httpClient: httpClient, userAgent: "edgarflow " + contactEmail}
}

// sectionHeadings maps each SectionKind to the Item-number heading
// SEC's standard 10-K/10-Q template uses to introduce it.
var sectionHeadings = map[collaborators.SectionKind][]string{
	collaborators.SectionBusinessDescription:   {"item 1.", "business"},
	collaborators.SectionRiskFactors:           {"item 1a.", "risk factors"},
	collaborators.SectionManagementDiscussion:  {"item 7.", "management's discussion"},
	collaborators.SectionLegalProceedings:      {"item 3.", "legal proceedings"},
	collaborators.SectionFinancialStatements:   {"item 8.", "financial statements"},
	collaborators.SectionControlsAndProcedures: {"item 9a.", "controls and procedures"},
	collaborators.SectionMarketForStock:        {"item 5.", "market for registrant"},
	collaborators.SectionQuantitativeDisclosure: {"item 7a.", "quantitative and qualitative"},
}

var tagRe = regexp.MustCompile(`(?s)<[^>]*>`)
var wsRe = regexp.MustCompile(`\s+`)

// GetSections downloads the filing's full submission text file
// (<accession>.txt) and returns the
// plain text found between each requested section's heading and the
// next one.
func (e *Extractor) GetSections(ctx context.Context, filing collaborators.FilingRef, kinds []collaborators.SectionKind) (map[collaborators.SectionKind]string, error) {
	body, err := e.fetchDocument(ctx, filing)
	if err != nil {
		return nil, fmt.Errorf("fetch document for %s: %w", filing.AccessionNumber, err)
	}

	plain := plainText(body)
	lowerPlain := strings.ToLower(plain)
	out := make(map[collaborators.SectionKind]string, len(kinds))
	for _, kind := range kinds {
		out[kind] = extractSection(lowerPlain, plain, sectionHeadings[kind])
	}
	return out, nil
}

func (e *Extractor) fetchDocument(ctx context.Context, filing collaborators.FilingRef) (string, error) {
	accession := strings.ReplaceAll(filing.AccessionNumber, "-", "")
	endpoint := fmt.Sprintf("https://www.sec.gov/Archives/edgar/data/%s/%s/%s.txt",
		strings.TrimLeft(filing.CIK, "0"), accession, filing.AccessionNumber)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func plainText(rawHTML string) string {
	unescaped := html.UnescapeString(tagRe.ReplaceAllString(rawHTML, " "))
	return strings.TrimSpace(wsRe.ReplaceAllString(unescaped, " "))
}

// extractSection finds the first heading alias's position in the
// lower-cased haystack and returns up to 8000 characters of the
// original plain text following it, stopping early if nothing
// matches.
func extractSection(lowerPlain, plain string, aliases []string) string {
	for _, alias := range aliases {
		idx := strings.Index(lowerPlain, alias)
		if idx < 0 {
			continue
		}
		end := idx + 8000
		if end > len(plain) {
			end = len(plain)
		}
		return strings.TrimSpace(plain[idx:end])
	}
	return ""
}
