// Package bridge relays authenticator ceremonies to a browser page over a websocket. The page
// runs navigator.credentials on behalf of the process and posts the outcome back.
package bridge

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/passkey-wallet/go-sdk/ceremony"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultAddr = "localhost:8765"

	pagePath    = "/"
	socketPath  = "/ws"
	metricsPath = "/metrics"
)

//go:embed page.html
var pageHTML []byte

type Option func(*Bridge)

// WithRegistry registers the bridge metrics on reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(b *Bridge) {
		b.registry = reg
	}
}

type Bridge struct {
	addr     string
	upgrader websocket.Upgrader
	registry *prometheus.Registry
	metrics  *metrics
	// a single ceremony may be in flight at any time
	sem chan struct{}

	mu     *sync.Mutex
	page   *pageConnection
	pageCh chan struct{}

	server   *http.Server
	listener net.Listener
}

func New(addr string, opts ...Option) *Bridge {
	if addr == "" {
		addr = DefaultAddr
	}
	b := &Bridge{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     sameOrigin,
		},
		sem:    make(chan struct{}, 1),
		mu:     &sync.Mutex{},
		pageCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.registry == nil {
		b.registry = prometheus.NewRegistry()
	}
	b.metrics = newMetrics(b.registry)
	return b
}

func (b *Bridge) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(pagePath, b.servePage)
	mux.HandleFunc(socketPath, b.serveSocket)
	mux.Handle(metricsPath, promhttp.HandlerFor(b.registry, promhttp.HandlerOpts{}))
	return mux
}

// Start listens on the configured address and serves the page in the background.
func (b *Bridge) Start() error {
	listener, err := net.Listen("tcp", b.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", b.addr, err)
	}
	b.listener = listener
	b.server = &http.Server{
		Handler:           b.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := b.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("ceremony bridge stopped")
		}
	}()
	log.Debugf("ceremony bridge listening on %s", b.URL())
	return nil
}

// URL is the address of the page the user must keep open while ceremonies run.
func (b *Bridge) URL() string {
	if b.listener != nil {
		return fmt.Sprintf("http://%s%s", b.listener.Addr().String(), pagePath)
	}
	return fmt.Sprintf("http://%s%s", b.addr, pagePath)
}

func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.page != nil {
		b.page.close()
		b.page = nil
	}
	b.mu.Unlock()

	if b.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return b.server.Shutdown(ctx)
}

func (b *Bridge) Create(
	ctx context.Context, options protocol.PublicKeyCredentialCreationOptions,
) (*ceremony.Attestation, error) {
	resp, err := b.run(ctx, createRequest, options)
	if err != nil {
		b.metrics.observe(createRequest, err)
		return nil, err
	}
	attestation, err := resp.Credential.toAttestation()
	if err != nil {
		err = fmt.Errorf("%w: %s", ceremony.ErrRejected, err)
	}
	b.metrics.observe(createRequest, err)
	return attestation, err
}

func (b *Bridge) Get(
	ctx context.Context, options protocol.PublicKeyCredentialRequestOptions,
) (*ceremony.Assertion, error) {
	resp, err := b.run(ctx, getRequest, options)
	if err != nil {
		b.metrics.observe(getRequest, err)
		return nil, err
	}
	assertion, err := resp.Credential.toAssertion()
	if err != nil {
		err = fmt.Errorf("%w: %s", ceremony.ErrRejected, err)
	}
	b.metrics.observe(getRequest, err)
	return assertion, err
}

func (b *Bridge) run(ctx context.Context, kind string, options any) (*response, error) {
	select {
	case b.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, rejected(ctx.Err().Error())
	}
	defer func() { <-b.sem }()

	page, err := b.waitForPage(ctx)
	if err != nil {
		return nil, rejected("no ceremony page connected")
	}

	id := uuid.NewString()
	respCh := page.register(id)
	defer page.unregister(id)

	if err := page.send(request{ID: id, Type: kind, Options: options}); err != nil {
		return nil, rejected(fmt.Sprintf("failed to reach ceremony page: %s", err))
	}
	log.Debugf("%s ceremony %s sent to page", kind, id)

	select {
	case resp := <-respCh:
		if resp.Error != nil {
			return nil, rejected(resp.Error.String())
		}
		if resp.Credential == nil {
			return nil, rejected("no credential returned")
		}
		return resp, nil
	case <-page.done:
		return nil, rejected("ceremony page disconnected")
	case <-ctx.Done():
		// nolint
		page.send(request{ID: id, Type: cancelRequest})
		return nil, rejected(ctx.Err().Error())
	}
}

func (b *Bridge) waitForPage(ctx context.Context) (*pageConnection, error) {
	for {
		b.mu.Lock()
		page, pageCh := b.page, b.pageCh
		b.mu.Unlock()

		if page != nil {
			return page, nil
		}
		select {
		case <-pageCh:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (b *Bridge) servePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != pagePath {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	// nolint
	w.Write(pageHTML)
}

func (b *Bridge) serveSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Debug("failed to upgrade ceremony page connection")
		return
	}

	page := newPageConnection(conn)

	b.mu.Lock()
	if b.page != nil {
		log.Debug("replacing previous ceremony page")
		b.page.close()
	}
	b.page = page
	close(b.pageCh)
	b.pageCh = make(chan struct{})
	b.mu.Unlock()

	b.metrics.pages.Inc()
	log.Debug("ceremony page connected")

	go func() {
		page.listen()
		b.metrics.pages.Dec()

		b.mu.Lock()
		defer b.mu.Unlock()
		if b.page == page {
			b.page = nil
		}
	}()
}

func rejected(reason string) error {
	return fmt.Errorf("%w: %s", ceremony.ErrRejected, reason)
}

// sameOrigin admits only the page served by the bridge itself. Requests without an Origin
// header come from non-browser clients and are refused.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && strings.EqualFold(u.Host, r.Host)
}
