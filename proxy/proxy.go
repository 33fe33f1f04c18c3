// Package proxy runs an in-process SOCKS5 proxy that the browser under test
// can be pointed at.
package proxy

import (
	"context"
	"log"
	"net"
	"strconv"
	"sync"

	socks5 "github.com/armon/go-socks5"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// Option configures a Server.
type Option func(*options)

type options struct {
	pin *socks5.AddrSpec
	err error
}

// PinTo sends every proxied connection to hostport, whatever address the
// client asked for. Names the client asks for are not resolved.
func PinTo(hostport string) Option {
	return func(o *options) {
		host, p, err := net.SplitHostPort(hostport)
		if err != nil {
			o.err = errors.Wrapf(err, "pin address %q", hostport)
			return
		}
		port, err := strconv.Atoi(p)
		if err != nil {
			o.err = errors.Wrapf(err, "pin address %q", hostport)
			return
		}
		o.pin = &socks5.AddrSpec{FQDN: host, IP: net.ParseIP(host), Port: port}
	}
}

// Server is a running SOCKS5 proxy.
type Server struct {
	l    net.Listener
	done chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// Start listens on listenAddr and serves SOCKS5 CONNECT requests until Close
// is called.
func Start(listenAddr string, opts ...Option) (*Server, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.err != nil {
		return nil, o.err
	}

	conf := &socks5.Config{
		Rules:  &socks5.PermitCommand{EnableConnect: true},
		Logger: log.New(glogWriter{}, "socks5: ", 0),
	}
	if o.pin != nil {
		conf.Resolver = pinResolver{}
		conf.Rewriter = &pinRewriter{to: o.pin}
	}
	srv, err := socks5.New(conf)
	if err != nil {
		return nil, errors.Wrap(err, "creating SOCKS5 server")
	}

	l, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "listening on %q", listenAddr)
	}
	s := &Server{l: l, done: make(chan struct{})}
	go func() {
		defer close(s.done)
		// Serve only returns once the listener fails, which is expected
		// after Close.
		if err := srv.Serve(l); err != nil {
			glog.V(1).Infof("SOCKS5 proxy on %s stopped: %v", l.Addr(), err)
		}
	}()
	if o.pin != nil {
		glog.Infof("SOCKS5 proxy listening on %s, pinned to %s", l.Addr(), o.pin.Address())
	} else {
		glog.Infof("SOCKS5 proxy listening on %s", l.Addr())
	}
	return s, nil
}

// Addr returns the host:port the proxy listens on.
func (s *Server) Addr() string {
	return s.l.Addr().String()
}

// Close stops accepting connections. Connections already proxied are left to
// finish on their own.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.l.Close()
		<-s.done
	})
	return s.closeErr
}

// pinRewriter rewrites all requested addresses to a fixed one.
type pinRewriter struct{ to *socks5.AddrSpec }

func (r *pinRewriter) Rewrite(ctx context.Context, req *socks5.Request) (context.Context, *socks5.AddrSpec) {
	glog.V(1).Infof("SOCKS5 CONNECT %s rewritten to %s", req.DestAddr, r.to.Address())
	to := *r.to
	return ctx, &to
}

// pinResolver skips name resolution. The destination is rewritten anyway, and
// the names the browser asks for need not exist.
type pinResolver struct{}

func (pinResolver) Resolve(ctx context.Context, name string) (context.Context, net.IP, error) {
	return ctx, nil, nil
}

// glogWriter feeds the proxy's own log.Logger output into glog.
type glogWriter struct{}

func (glogWriter) Write(p []byte) (int, error) {
	glog.Warning(string(p))
	return len(p), nil
}
