package httputil

import (
	"net/http"
	"net/url"
	"time"

	"rent_scrooper/config"
)

type Clients struct {
	Scraping *http.Client // proxied when PROXY_URL is set, for listing pages
	Direct   *http.Client // for storage endpoints
}

func NewClients(proxyCfg config.ProxyConfig) *Clients {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyCfg.URL != "" {
		if proxyURL, err := url.Parse(proxyCfg.URL); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	return &Clients{
		Scraping: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		Direct: &http.Client{Timeout: 30 * time.Second},
	}
}
