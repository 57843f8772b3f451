package httpclient

import (
	"net/http"
	"sync"

	"github.com/taoxee/scribeflow/logger"
)

// Proxy configuration is detected once per process from the environment and
// shared read-only by every client. The direct transport exists for the
// bounded escalation path: one unproxied retry after a proxied connection
// failure.
var (
	proxyOnce        sync.Once
	proxiedTransport *http.Transport
	directTransport  *http.Transport
	proxyInUse       bool
)

func initTransports() {
	proxyOnce.Do(func() {
		base := http.DefaultTransport.(*http.Transport).Clone()
		base.MaxIdleConnsPerHost = 4
		base.MaxConnsPerHost = 8

		proxiedTransport = base
		proxiedTransport.Proxy = http.ProxyFromEnvironment

		directTransport = base.Clone()
		directTransport.Proxy = nil

		req, err := http.NewRequest(http.MethodGet, "https://api.openai.com/", nil)
		if err == nil {
			if u, perr := http.ProxyFromEnvironment(req); perr == nil && u != nil {
				proxyInUse = true
				logger.WithComponent("httpclient").Info("proxy detected",
					map[string]interface{}{"proxy": u.Host})
			}
		}
	})
}

// ProxyInUse reports whether an environment proxy was detected at startup.
func ProxyInUse() bool {
	initTransports()
	return proxyInUse
}
