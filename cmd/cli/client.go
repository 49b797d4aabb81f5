package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"os"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/and161185/stockfolio/internal/api"
)

func loadTLS(caPath string, skipVerify bool) (credentials.TransportCredentials, error) {
	if skipVerify {
		return credentials.NewTLS(&tls.Config{InsecureSkipVerify: true}), nil
	}
	if caPath == "" {
		return credentials.NewClientTLSFromCert(nil, ""), nil
	}
	pem, err := os.ReadFile(caPath)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.New("bad CA cert")
	}
	return credentials.NewTLS(&tls.Config{RootCAs: pool}), nil
}

// dialer opens the client connection according to the global flags.
func (g *globals) dialer() (*grpc.ClientConn, error) {
	if g.dial != nil {
		return g.dial()
	}
	var creds credentials.TransportCredentials
	if g.plaintext {
		creds = insecure.NewCredentials()
	} else {
		var err error
		if creds, err = loadTLS(g.caPath, g.insecure); err != nil {
			return nil, err
		}
	}
	return grpc.NewClient(g.addr, grpc.WithTransportCredentials(creds))
}

// client bundles the stubs and the persisted session of one invocation.
type client struct {
	cc       *grpc.ClientConn
	auth     *api.AuthClient
	holdings *api.HoldingsClient
	sess     *session
}

func (g *globals) connect() (*client, error) {
	cc, err := g.dialer()
	if err != nil {
		return nil, err
	}
	return &client{cc: cc, auth: api.NewAuthClient(cc), holdings: api.NewHoldingsClient(cc)}, nil
}

func (c *client) Close() error { return c.cc.Close() }

func bearer(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
}

// authed runs call with the stored access token. On Unauthenticated it rotates the
// refresh token once, persists the new pair and retries.
func (c *client) authed(ctx context.Context, call func(ctx context.Context) error) error {
	if c.sess == nil {
		s, err := loadSession()
		if err != nil {
			return err
		}
		c.sess = s
	}
	err := call(bearer(ctx, c.sess.AccessToken))
	if status.Code(err) != codes.Unauthenticated || c.sess.RefreshToken == "" {
		return err
	}
	if rerr := c.refresh(ctx); rerr != nil {
		return rerr
	}
	return call(bearer(ctx, c.sess.AccessToken))
}

func (c *client) refresh(ctx context.Context) error {
	if c.sess == nil {
		s, err := loadSession()
		if err != nil {
			return err
		}
		c.sess = s
	}
	tok, err := c.auth.Refresh(ctx, &api.RefreshRequest{RefreshToken: c.sess.RefreshToken})
	if err != nil {
		if status.Code(err) == codes.Unauthenticated {
			_ = clearSession()
			return errors.New("session expired or revoked (run: sf login)")
		}
		return err
	}
	c.sess.update(tok)
	return saveSession(c.sess)
}
