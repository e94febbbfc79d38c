// Package netutil builds the outbound HTTP clients used for the arXiv API and
// the webhook sink, and classifies their transport failures.
package netutil

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/http/httpproxy"
)

var (
	ErrNetwork     = errors.New("network error")
	ErrCertificate = errors.New("certificate verification failed")
)

// DefaultTimeout bounds a whole request, including reading the body.
const DefaultTimeout = 20 * time.Second

// Options controls how a client reaches the network.
type Options struct {
	// UseProxy routes requests through the proxy named by HTTP_PROXY,
	// HTTPS_PROXY and NO_PROXY. When false every request dials the
	// destination directly, ignoring any proxy configured on the host.
	UseProxy bool

	// CABundlePath optionally names a PEM file whose certificates are
	// trusted in addition to the system roots.
	CABundlePath string

	Timeout time.Duration
}

// NewClient returns an http.Client that applies the proxy and trust policy in
// opts. A CA bundle that cannot be loaded is logged and the system roots are
// used instead.
func NewClient(opts Options, logger *zap.Logger) *http.Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := &http.Transport{
		Proxy:                 proxyFunc(opts.UseProxy),
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
	}
	if opts.CABundlePath != "" {
		pool, err := loadCABundle(opts.CABundlePath)
		if err != nil {
			logger.Warn("CA bundle not loaded, using system roots",
				zap.String("path", opts.CABundlePath), zap.Error(err))
		} else {
			transport.TLSClientConfig.RootCAs = pool
		}
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("stopped after 5 redirects")
			}
			return nil
		},
	}
}

func proxyFunc(useProxy bool) func(*http.Request) (*url.URL, error) {
	if !useProxy {
		return nil
	}
	resolve := httpproxy.FromEnvironment().ProxyFunc()
	return func(req *http.Request) (*url.URL, error) {
		return resolve(req.URL)
	}
}

// loadCABundle returns the system pool extended with the certificates in path.
func loadCABundle(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", path)
	}
	return pool, nil
}

// ClassifyError wraps a transport error with ErrCertificate when TLS
// verification failed and with ErrNetwork otherwise.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	if IsCertificateError(err) {
		return fmt.Errorf("%w: %v", ErrCertificate, err)
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

// IsCertificateError reports whether err comes from a failed certificate
// verification.
func IsCertificateError(err error) bool {
	var verifyErr *tls.CertificateVerificationError
	if errors.As(err, &verifyErr) {
		return true
	}
	var unknownAuthority x509.UnknownAuthorityError
	if errors.As(err, &unknownAuthority) {
		return true
	}
	var hostnameErr x509.HostnameError
	if errors.As(err, &hostnameErr) {
		return true
	}
	var invalidErr x509.CertificateInvalidError
	return errors.As(err, &invalidErr)
}
