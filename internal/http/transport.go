package http

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/fivetwenty-io/gdapi/pkg/gdapi"
)

// Static errors for err113 compliance.
var (
	ErrNoCertificates    = errors.New("no certificates found")
	ErrTooManyRedirects  = errors.New("too many redirects")
	ErrInterfaceNoAddr   = errors.New("interface has no usable address")
	ErrEncryptedKeyNoPas = errors.New("client certificate key is encrypted but no passphrase was given")
)

// NewHTTPClient builds the net/http client described by the TLS, connection
// and redirect settings in options.
func NewHTTPClient(options *gdapi.Options) (*http.Client, error) {
	tlsConfig, err := buildTLSConfig(options)
	if err != nil {
		return nil, err
	}

	dialer := &net.Dialer{
		Timeout:   options.ConnectTimeout,
		KeepAlive: options.KeepAlive,
	}

	if options.Interface != "" {
		addr, err := localAddr(options.Interface)
		if err != nil {
			return nil, err
		}

		dialer.LocalAddr = addr
	}

	transport := cleanhttp.DefaultPooledTransport()
	transport.DialContext = dialer.DialContext
	transport.TLSClientConfig = tlsConfig
	transport.DisableCompression = !options.Compress
	transport.TLSHandshakeTimeout = options.ConnectTimeout

	if options.KeepAlive > 0 {
		transport.IdleConnTimeout = options.KeepAlive
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   options.ResponseTimeout,
	}

	maxRedirects := options.MaxRedirects
	followRedirects := options.FollowRedirects

	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if !followRedirects {
			return http.ErrUseLastResponse
		}

		if len(via) >= maxRedirects {
			return fmt.Errorf("%w: stopped after %d", ErrTooManyRedirects, maxRedirects)
		}

		return nil
	}

	return client, nil
}

func buildTLSConfig(options *gdapi.Options) (*tls.Config, error) {
	//nolint:gosec // verification is only disabled when the caller asks for it
	config := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: !options.VerifySSL,
	}

	if options.CACert != "" || options.CAPath != "" {
		pool, err := loadCertPool(options.CACert, options.CAPath)
		if err != nil {
			return nil, err
		}

		config.RootCAs = pool
	}

	if options.ClientCert != "" {
		cert, err := loadClientCert(options)
		if err != nil {
			return nil, err
		}

		config.Certificates = []tls.Certificate{cert}
	}

	return config, nil
}

func loadCertPool(caCert, caPath string) (*x509.CertPool, error) {
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}

	files := []string{}
	if caCert != "" {
		files = append(files, caCert)
	}

	if caPath != "" {
		entries, err := os.ReadDir(caPath)
		if err != nil {
			return nil, fmt.Errorf("reading CA directory %s: %w", caPath, err)
		}

		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !(strings.HasSuffix(name, ".pem") || strings.HasSuffix(name, ".crt")) {
				continue
			}

			files = append(files, filepath.Join(caPath, name))
		}
	}

	added := 0

	for _, file := range files {
		data, err := os.ReadFile(file) //nolint:gosec // path comes from trusted configuration
		if err != nil {
			return nil, fmt.Errorf("reading CA certificate %s: %w", file, err)
		}

		if pool.AppendCertsFromPEM(data) {
			added++
		}
	}

	if added == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoCertificates, strings.Join(files, ", "))
	}

	return pool, nil
}

func loadClientCert(options *gdapi.Options) (tls.Certificate, error) {
	certPEM, err := os.ReadFile(options.ClientCert)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("reading client certificate: %w", err)
	}

	keyFile := options.ClientCertKey
	if keyFile == "" {
		keyFile = options.ClientCert
	}

	keyPEM, err := os.ReadFile(keyFile) //nolint:gosec // path comes from trusted configuration
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("reading client certificate key: %w", err)
	}

	keyPEM, err = decryptKey(keyPEM, options.ClientCertPass)
	if err != nil {
		return tls.Certificate{}, err
	}

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("loading client certificate: %w", err)
	}

	return cert, nil
}

// decryptKey decrypts a legacy encrypted PEM key. Unencrypted keys are
// returned unchanged.
func decryptKey(keyPEM []byte, pass gdapi.Credential) ([]byte, error) {
	rest := keyPEM

	for {
		var block *pem.Block

		block, rest = pem.Decode(rest)
		if block == nil {
			return keyPEM, nil
		}

		//nolint:staticcheck // legacy PEM encryption is what client_cert_pass unlocks
		if !x509.IsEncryptedPEMBlock(block) {
			continue
		}

		if pass == nil {
			return nil, ErrEncryptedKeyNoPas
		}

		passphrase, err := gdapi.ResolveCredential(pass)
		if err != nil {
			return nil, err
		}

		//nolint:staticcheck // see above
		der, err := x509.DecryptPEMBlock(block, []byte(passphrase))
		if err != nil {
			return nil, fmt.Errorf("decrypting client certificate key: %w", err)
		}

		return pem.EncodeToMemory(&pem.Block{Type: block.Type, Bytes: der}), nil
	}
}

// localAddr resolves the outgoing interface: an IP literal, an interface
// name, or a host name.
func localAddr(iface string) (*net.TCPAddr, error) {
	if ip := net.ParseIP(iface); ip != nil {
		return &net.TCPAddr{IP: ip}, nil
	}

	if netIface, err := net.InterfaceByName(iface); err == nil {
		addrs, err := netIface.Addrs()
		if err != nil {
			return nil, fmt.Errorf("listing addresses of %s: %w", iface, err)
		}

		for _, addr := range addrs {
			if ipNet, ok := addr.(*net.IPNet); ok {
				return &net.TCPAddr{IP: ipNet.IP}, nil
			}
		}

		return nil, fmt.Errorf("%w: %s", ErrInterfaceNoAddr, iface)
	}

	ips, err := net.LookupIP(iface)
	if err != nil || len(ips) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrInterfaceNoAddr, iface)
	}

	return &net.TCPAddr{IP: ips[0]}, nil
}
