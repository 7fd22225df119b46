// Package registry implements contracts.RegistryClient against a
// PEP 691 JSON simple index, grounded on the teacher's httpx.BasicClient
// abstraction: a client is anything with a Do method, so tests substitute
// a fake without standing up a server.
package registry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"

	"github.com/pysync/pysync/pkg/contracts"
)

// BasicClient is the minimal HTTP surface Client depends on.
type BasicClient interface {
	Do(*http.Request) (*http.Response, error)
}

var _ BasicClient = http.DefaultClient

// Client is a contracts.RegistryClient backed by a PEP 691 JSON simple
// index.
type Client struct {
	HTTP      BasicClient
	UserAgent string
}

var _ contracts.RegistryClient = &Client{}

// NewClient builds a Client using http.DefaultClient.
func NewClient(userAgent string) *Client {
	return &Client{HTTP: http.DefaultClient, UserAgent: userAgent}
}

type simpleIndexFile struct {
	Filename string            `json:"filename"`
	URL      string            `json:"url"`
	Hashes   map[string]string `json:"hashes"`
	Yanked   jsonYanked        `json:"yanked"`
	Size     int64             `json:"size"`
}

// jsonYanked decodes PEP 691's "yanked" field, which is either a bool or
// a string giving the yank reason; either form means yanked.
type jsonYanked bool

func (y *jsonYanked) UnmarshalJSON(b []byte) error {
	var asBool bool
	if err := json.Unmarshal(b, &asBool); err == nil {
		*y = jsonYanked(asBool)
		return nil
	}
	var asString string
	if err := json.Unmarshal(b, &asString); err == nil {
		*y = true
		return nil
	}
	return errors.Errorf("unrecognized yanked field %s", b)
}

type simpleIndexResponse struct {
	Files []simpleIndexFile `json:"files"`
}

// FetchIndex implements contracts.RegistryClient.
func (c *Client) FetchIndex(ctx context.Context, indexURL string) ([]contracts.IndexEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, indexURL, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "building request for %s", indexURL)
	}
	req.Header.Set("Accept", "application/vnd.pypi.simple.v1+json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %s", indexURL)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("fetching %s: %s", indexURL, resp.Status)
	}

	var parsed simpleIndexResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, errors.Wrapf(err, "decoding index %s", indexURL)
	}

	out := make([]contracts.IndexEntry, 0, len(parsed.Files))
	for _, f := range parsed.Files {
		out = append(out, contracts.IndexEntry{
			Filename: f.Filename, URL: f.URL, Hashes: f.Hashes, Yanked: bool(f.Yanked), Size: f.Size,
		})
	}
	return out, nil
}

// Download implements contracts.RegistryClient.
func (c *Client) Download(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "building request for %s", url)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "downloading %s", url)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.Errorf("downloading %s: %s", url, resp.Status)
	}
	return resp.Body, nil
}
