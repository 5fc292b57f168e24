package hrdir

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type hrClient struct {
	baseURL   string
	apiKey    string
	apiKeyHdr string
	http      *http.Client
	limiter   <-chan time.Time
}

func newHrClient() (*hrClient, error) {
	baseURL := strings.TrimSpace(os.Getenv("HR_API_BASE_URL"))
	if baseURL == "" {
		return nil, errors.New("hr api base url is empty")
	}
	apiKey := strings.TrimSpace(os.Getenv("HR_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("hr api key is empty")
	}
	apiKeyHeader := strings.TrimSpace(os.Getenv("HR_API_KEY_HEADER"))
	if apiKeyHeader == "" {
		apiKeyHeader = "X-API-Key"
	}
	rateLimitPerMin := int64(60)
	if v := strings.TrimSpace(os.Getenv("HR_RATE_LIMIT_PER_MIN")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			rateLimitPerMin = n
		}
	}
	interval := time.Minute / time.Duration(rateLimitPerMin)

	return &hrClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		apiKeyHdr: apiKeyHeader,
		http:      &http.Client{Timeout: 10 * time.Second},
		limiter:   time.Tick(interval),
	}, nil
}

type employeeStatus struct {
	PartnerCode string `json:"partner_code"`
	Brand       string `json:"brand"`
	Active      bool   `json:"active"`
}

func (c *hrClient) getEmployeeStatus(ctx context.Context, partnerCode, brand string) (employeeStatus, error) {
	<-c.limiter
	params := url.Values{}
	params.Set("brand", brand)
	endpoint := c.baseURL + "/v1/employees/" + url.PathEscape(partnerCode) + "/status?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return employeeStatus{}, err
	}
	req.Header.Set(c.apiKeyHdr, c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return employeeStatus{}, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusNotFound {
		// Unknown partner: not an employee.
		return employeeStatus{PartnerCode: partnerCode, Brand: brand, Active: false}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return employeeStatus{}, fmt.Errorf("hr api error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed employeeStatus
	if err := json.Unmarshal(body, &parsed); err != nil {
		return employeeStatus{}, err
	}
	return parsed, nil
}
