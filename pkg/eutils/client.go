// Package eutils is a client for the NCBI Entrez E-utilities API.
//
// Every operation passes through the shared rate limiter before the
// retrying transport, and attaches the tool/email identification
// parameters NCBI requires (plus the API key when one is configured,
// which also unlocks the higher request tier).
package eutils

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/vihaankulkarni29/NCBI-MetadataHarvester/pkg/httpretry"
	"github.com/vihaankulkarni29/NCBI-MetadataHarvester/pkg/ratelimit"
)

// DefaultBaseURL is the production E-utilities endpoint.
const DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// Databases and link names used by the harvester.
const (
	DBAssembly = "assembly"
	DBNuccore  = "nuccore"

	// LinkAssemblyNuccoreRefSeq maps an assembly uid to its RefSeq
	// nuccore sequence ids.
	LinkAssemblyNuccoreRefSeq = "assembly_nuccore_refseq"
)

// Config identifies this client to NCBI.
type Config struct {
	// BaseURL overrides the E-utilities endpoint (tests, mirrors).
	BaseURL string

	// Tool is the registered tool name sent with every request.
	Tool string

	// Email is the contact address sent with every request.
	Email string

	// APIKey unlocks the 10 rps tier when set.
	APIKey string
}

// Gateway issues esearch/esummary/elink/efetch calls.
type Gateway interface {
	ESearch(ctx context.Context, db, term string, retmax int) ([]string, error)
	ESummary(ctx context.Context, db string, ids []string) (map[string]SummaryDoc, error)
	ELink(ctx context.Context, fromDB, toDB string, ids []string, linkname string) (map[string][]string, error)
	EFetch(ctx context.Context, db string, ids []string, rettype, retmode string) (string, error)
}

// Client is the HTTP Gateway implementation.
type Client struct {
	cfg     Config
	limiter *ratelimit.Limiter
	http    *httpretry.Client
}

// New creates a client. The limiter must be the process-wide instance;
// NCBI rate limits the aggregate, not individual jobs.
func New(cfg Config, limiter *ratelimit.Limiter, transport *httpretry.Client) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, limiter: limiter, http: transport}
}

func (c *Client) params(extra url.Values) url.Values {
	p := url.Values{}
	p.Set("tool", c.cfg.Tool)
	p.Set("email", c.cfg.Email)
	if c.cfg.APIKey != "" {
		p.Set("api_key", c.cfg.APIKey)
	}
	for k, vs := range extra {
		for _, v := range vs {
			p.Add(k, v)
		}
	}
	return p
}

func (c *Client) get(ctx context.Context, endpoint string, extra url.Values) ([]byte, error) {
	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	resp, err := c.http.Get(ctx, c.cfg.BaseURL+"/"+endpoint, c.params(extra))
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// ESearch runs a text query against db and returns the uid list in
// the service's relevance order.
func (c *Client) ESearch(ctx context.Context, db, term string, retmax int) ([]string, error) {
	extra := url.Values{}
	extra.Set("db", db)
	extra.Set("term", term)
	extra.Set("retmax", fmt.Sprintf("%d", retmax))
	extra.Set("retmode", "json")

	body, err := c.get(ctx, "esearch.fcgi", extra)
	if err != nil {
		return nil, fmt.Errorf("esearch %s: %w", db, err)
	}

	var parsed esearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode esearch response: %w", err)
	}
	return parsed.ESearchResult.IDList, nil
}

// ESummary returns summary documents keyed by uid.
func (c *Client) ESummary(ctx context.Context, db string, ids []string) (map[string]SummaryDoc, error) {
	extra := url.Values{}
	extra.Set("db", db)
	extra.Set("id", strings.Join(ids, ","))
	extra.Set("retmode", "json")

	body, err := c.get(ctx, "esummary.fcgi", extra)
	if err != nil {
		return nil, fmt.Errorf("esummary %s: %w", db, err)
	}

	var parsed esummaryResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode esummary response: %w", err)
	}

	docs := make(map[string]SummaryDoc, len(ids))
	for uid, raw := range parsed.Result {
		// The result map carries a "uids" index entry alongside the docs.
		if uid == "uids" {
			continue
		}
		var doc SummaryDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}
		docs[uid] = doc
	}
	return docs, nil
}

// ELink resolves cross-database relationships for ids, optionally
// restricted to a named link. The result maps each source id to its
// related-id list.
func (c *Client) ELink(ctx context.Context, fromDB, toDB string, ids []string, linkname string) (map[string][]string, error) {
	extra := url.Values{}
	extra.Set("dbfrom", fromDB)
	extra.Set("db", toDB)
	extra.Set("id", strings.Join(ids, ","))
	extra.Set("retmode", "json")
	if linkname != "" {
		extra.Set("linkname", linkname)
	}

	body, err := c.get(ctx, "elink.fcgi", extra)
	if err != nil {
		return nil, fmt.Errorf("elink %s->%s: %w", fromDB, toDB, err)
	}

	var parsed elinkResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode elink response: %w", err)
	}

	links := make(map[string][]string)
	for _, set := range parsed.LinkSets {
		if len(set.IDs) == 0 || len(set.LinkSetDBs) == 0 {
			continue
		}
		links[set.IDs[0]] = set.LinkSetDBs[0].Links
	}
	return links, nil
}

// EFetch retrieves full records for ids in one call and returns the
// raw response text. Batching is the caller's responsibility.
func (c *Client) EFetch(ctx context.Context, db string, ids []string, rettype, retmode string) (string, error) {
	extra := url.Values{}
	extra.Set("db", db)
	extra.Set("id", strings.Join(ids, ","))
	extra.Set("rettype", rettype)
	extra.Set("retmode", retmode)

	body, err := c.get(ctx, "efetch.fcgi", extra)
	if err != nil {
		return "", fmt.Errorf("efetch %s: %w", db, err)
	}
	return string(body), nil
}
