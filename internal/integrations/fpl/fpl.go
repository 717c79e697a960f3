// Package fpl loads federal poverty guidelines from an XML feed.
package fpl

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"

	"github.com/oasis-app/oasis-service/internal/eligibility"
)

// Client fetches poverty guidelines documents shaped like
//
//	<PovertyGuidelines year="2024">
//	  <Guideline size="1">15060</Guideline>
//	  ...
//	  <AdditionalPerson>5380</AdditionalPerson>
//	</PovertyGuidelines>
type Client struct {
	url    string
	client *http.Client
	log    *logrus.Logger
}

// NewClient initializes a new guidelines feed client
func NewClient(url string, log *logrus.Logger) *Client {
	return &Client{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

func (c *Client) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/xml")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	c.log.Debugf("Poverty guidelines XML response: %s", string(body))
	return body, nil
}

// ParseGuidelines reads a guidelines document into a lookup table.
func ParseGuidelines(raw []byte) (eligibility.Table, int, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return eligibility.Table{}, 0, fmt.Errorf("failed to parse XML: %w", err)
	}

	root := doc.FindElement("//PovertyGuidelines")
	if root == nil {
		return eligibility.Table{}, 0, fmt.Errorf("no PovertyGuidelines element in XML")
	}
	year, _ := strconv.Atoi(root.SelectAttrValue("year", "0"))

	values := make(map[int]float64)
	for _, el := range root.FindElements("./Guideline") {
		size, err := strconv.Atoi(el.SelectAttrValue("size", ""))
		if err != nil || size < 1 {
			return eligibility.Table{}, 0, fmt.Errorf("invalid guideline size %q", el.SelectAttrValue("size", ""))
		}
		amount, err := parseAmount(el.Text())
		if err != nil {
			return eligibility.Table{}, 0, fmt.Errorf("invalid guideline for size %d: %w", size, err)
		}
		values[size] = amount
	}
	if len(values) == 0 {
		return eligibility.Table{}, 0, fmt.Errorf("no guideline data found in XML")
	}
	for size := 1; size <= len(values); size++ {
		if _, ok := values[size]; !ok {
			return eligibility.Table{}, 0, fmt.Errorf("guideline for household size %d missing", size)
		}
	}

	extra := root.FindElement("./AdditionalPerson")
	if extra == nil {
		return eligibility.Table{}, 0, fmt.Errorf("AdditionalPerson element not found in XML")
	}
	step, err := parseAmount(extra.Text())
	if err != nil {
		return eligibility.Table{}, 0, fmt.Errorf("invalid additional person amount: %w", err)
	}

	return eligibility.NewTable(values, step), year, nil
}

func parseAmount(s string) (float64, error) {
	s = strings.NewReplacer(",", "", "$", "").Replace(strings.TrimSpace(s))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("amount must be positive, got %v", v)
	}
	return v, nil
}

// GetPovertyTable retrieves the current guidelines from the feed.
func (c *Client) GetPovertyTable(ctx context.Context) (eligibility.Table, error) {
	body, err := c.fetch(ctx)
	if err != nil {
		return eligibility.Table{}, err
	}

	table, year, err := ParseGuidelines(body)
	if err != nil {
		return eligibility.Table{}, err
	}

	c.log.Infof("Loaded %d poverty guidelines for %d (size 4: %.0f)", table.Len(), year, table.Lookup(4))
	return table, nil
}
