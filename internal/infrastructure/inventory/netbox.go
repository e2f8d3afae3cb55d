package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"alerttrack/internal/bootstrap/config"
	"alerttrack/internal/bootstrap/logging"
	"alerttrack/internal/domain/alert"
	"alerttrack/internal/ports"
)

// unknownValue is what the inventory returns for attributes it has no real
// data for; such attributes are treated as absent.
const unknownValue = "unknown"

// Client enriches an IP with host attributes from a NetBox-style inventory
// API. It never fails across the boundary: any lookup or decode problem
// degrades to a HostData carrying only the IP. Successful lookups are
// memoized through the cache for the configured TTL.
type Client struct {
	baseURL    string
	token      string
	cacheTTL   time.Duration
	httpClient *http.Client
	cache      ports.Cache
}

var _ ports.Enricher = (*Client)(nil)

func NewClient(cfg config.InventoryConfig, cache ports.Cache) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		token:      cfg.Token,
		cacheTTL:   cfg.CacheTTL,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache,
	}
}

func (c *Client) Enrich(ctx context.Context, ip string) alert.HostData {
	host := alert.HostData{IP: ip, Services: []string{}}
	if c == nil || c.baseURL == "" || strings.TrimSpace(ip) == "" {
		return host
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "inventory"), slog.String("ip", ip))

	if cached, ok := c.cachedHost(ctx, ip); ok {
		return cached
	}

	device, err := c.lookupDevice(ctx, ip)
	if err != nil {
		logging.Warn(logCtx, "inventory lookup failed", slog.String("err", err.Error()))
		return host
	}
	if device == nil {
		return host
	}

	host.Hostname = known(device.Name)
	host.Model = known(device.DeviceType.Model)
	host.Role = known(device.Role.Name)
	host.Location = known(device.Site.Name)
	for _, service := range device.Services {
		if name := strings.TrimSpace(service.Name); name != "" {
			host.Services = append(host.Services, name)
		}
	}

	c.storeCached(ctx, host)
	return host
}

type deviceDTO struct {
	Name       string `json:"name"`
	DeviceType struct {
		Model string `json:"model"`
	} `json:"device_type"`
	Role struct {
		Name string `json:"name"`
	} `json:"role"`
	Site struct {
		Name string `json:"name"`
	} `json:"site"`
	Services []struct {
		Name string `json:"name"`
	} `json:"services"`
}

type deviceListDTO struct {
	Results []deviceDTO `json:"results"`
}

func (c *Client) lookupDevice(ctx context.Context, ip string) (*deviceDTO, error) {
	endpoint := fmt.Sprintf("%s/api/dcim/devices/?primary_ip4=%s", c.baseURL, url.QueryEscape(ip+"/24"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inventory responded %d", resp.StatusCode)
	}

	var list deviceListDTO
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, err
	}
	if len(list.Results) == 0 {
		return nil, nil
	}
	return &list.Results[0], nil
}

func (c *Client) cachedHost(ctx context.Context, ip string) (alert.HostData, bool) {
	if c.cache == nil {
		return alert.HostData{}, false
	}
	raw, found, err := c.cache.Get(ctx, cacheKey(ip))
	if err != nil || !found {
		return alert.HostData{}, false
	}
	var host alert.HostData
	if err := json.Unmarshal([]byte(raw), &host); err != nil || host.IP == "" {
		return alert.HostData{}, false
	}
	return host, true
}

func (c *Client) storeCached(ctx context.Context, host alert.HostData) {
	if c.cache == nil {
		return
	}
	encoded, err := json.Marshal(host)
	if err != nil {
		return
	}
	// Best effort; a failed cache write only costs the next lookup.
	_ = c.cache.Set(ctx, cacheKey(host.IP), string(encoded), c.cacheTTL)
}

func cacheKey(ip string) string {
	return "host:" + ip
}

func known(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" || strings.EqualFold(trimmed, unknownValue) {
		return nil
	}
	return &trimmed
}
