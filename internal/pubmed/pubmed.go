// Package pubmed is a minimal NCBI Entrez client covering the two calls the
// citation engine needs: esearch for candidate PMIDs and efetch for article
// metadata. All requests flow through one rate limiter so lookups are paced
// with a fixed inter-request delay regardless of the caller; the engine
// additionally keeps per-chapter lookups strictly sequential.
package pubmed

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	// BaseURL is the Entrez E-utilities endpoint.
	BaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

	// toolName identifies this client to NCBI as required by their policy.
	toolName = "slide2thesis"

	// requestInterval is the fixed pause enforced between consecutive
	// requests. NCBI allows 3 req/s without an API key; we stay under it.
	requestInterval = 500 * time.Millisecond
)

// Paper is the metadata for one PubMed record.
type Paper struct {
	PMID    string
	Title   string
	Authors []string // "Surname, Initials"
	Journal string
	Year    string
	DOI     string
}

// Client is a rate-limited Entrez HTTP client.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	email      string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

// NewClient creates an Entrez client. email is required by NCBI usage policy.
func NewClient(email string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(requestInterval), 1),
		baseURL:    BaseURL,
		email:      email,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type esearchResponse struct {
	ESearchResult struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

// Search returns up to maxResults PMIDs for a query, sorted by relevance.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]string, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"term":    {query},
		"retmax":  {fmt.Sprintf("%d", maxResults)},
		"sort":    {"relevance"},
		"retmode": {"json"},
	}
	body, err := c.get(ctx, "/esearch.fcgi", params)
	if err != nil {
		return nil, err
	}
	var resp esearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse esearch response: %w", err)
	}
	return resp.ESearchResult.IDList, nil
}

// efetch XML mapping, trimmed to the fields the bibliography needs.
type efetchResponse struct {
	Articles []struct {
		MedlineCitation struct {
			PMID    string `xml:"PMID"`
			Article struct {
				ArticleTitle string `xml:"ArticleTitle"`
				Journal      struct {
					Title        string `xml:"Title"`
					JournalIssue struct {
						PubDate struct {
							Year string `xml:"Year"`
						} `xml:"PubDate"`
					} `xml:"JournalIssue"`
				} `xml:"Journal"`
				AuthorList struct {
					Authors []struct {
						LastName string `xml:"LastName"`
						Initials string `xml:"Initials"`
					} `xml:"Author"`
				} `xml:"AuthorList"`
			} `xml:"Article"`
		} `xml:"MedlineCitation"`
		PubmedData struct {
			ArticleIDs []struct {
				IDType string `xml:"IdType,attr"`
				Value  string `xml:",chardata"`
			} `xml:"ArticleIdList>ArticleId"`
		} `xml:"PubmedData"`
	} `xml:"PubmedArticle"`
}

// Fetch returns full metadata for one PMID.
func (c *Client) Fetch(ctx context.Context, pmid string) (*Paper, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"id":      {pmid},
		"retmode": {"xml"},
	}
	body, err := c.get(ctx, "/efetch.fcgi", params)
	if err != nil {
		return nil, err
	}

	var resp efetchResponse
	if err := xml.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse efetch response: %w", err)
	}
	if len(resp.Articles) == 0 {
		return nil, fmt.Errorf("no article returned for PMID %s", pmid)
	}

	art := resp.Articles[0]
	paper := &Paper{
		PMID:    pmid,
		Title:   art.MedlineCitation.Article.ArticleTitle,
		Journal: art.MedlineCitation.Article.Journal.Title,
		Year:    art.MedlineCitation.Article.Journal.JournalIssue.PubDate.Year,
	}
	if paper.Title == "" {
		paper.Title = "No title"
	}
	if paper.Journal == "" {
		paper.Journal = "Unknown Journal"
	}
	if paper.Year == "" {
		paper.Year = "Unknown"
	}
	for _, a := range art.MedlineCitation.Article.AuthorList.Authors {
		if a.LastName == "" {
			continue
		}
		paper.Authors = append(paper.Authors, fmt.Sprintf("%s, %s", a.LastName, a.Initials))
	}
	for _, id := range art.PubmedData.ArticleIDs {
		if id.IDType == "doi" {
			paper.DOI = id.Value
			break
		}
	}
	return paper, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params.Set("tool", toolName)
	if c.email != "" {
		params.Set("email", c.email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("entrez request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read entrez response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("entrez error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}
