package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/status"

	"github.com/and161185/stockfolio/internal/api"
)

const callTimeout = 15 * time.Second

func (g *globals) fail(err error) subcommands.ExitStatus {
	msg := err.Error()
	if st, ok := status.FromError(err); ok {
		msg = st.Message()
	}
	fmt.Fprintln(g.stderr, "error:", msg)
	return subcommands.ExitFailure
}

// run connects, executes fn under a call timeout and reports its error.
func (g *globals) run(ctx context.Context, fn func(ctx context.Context, c *client) error) subcommands.ExitStatus {
	c, err := g.connect()
	if err != nil {
		return g.fail(err)
	}
	defer c.Close()
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	if err := fn(ctx, c); err != nil {
		return g.fail(err)
	}
	return subcommands.ExitSuccess
}

func (g *globals) usageError(f *flag.FlagSet, msg string) subcommands.ExitStatus {
	fmt.Fprintln(g.stderr, msg)
	f.Usage()
	return subcommands.ExitUsageError
}

type versionCmd struct{ g *globals }

func (*versionCmd) Name() string           { return "version" }
func (*versionCmd) Synopsis() string       { return "print the client version" }
func (*versionCmd) Usage() string          { return "version\n" }
func (*versionCmd) SetFlags(*flag.FlagSet) {}
func (c *versionCmd) Execute(context.Context, *flag.FlagSet, ...interface{}) subcommands.ExitStatus {
	fmt.Fprintf(c.g.out, "sf %s (%s)\n", version, buildDate)
	return subcommands.ExitSuccess
}

type signupCmd struct {
	g                               *globals
	username, name, email, password string
}

func (*signupCmd) Name() string     { return "signup" }
func (*signupCmd) Synopsis() string { return "register an account" }
func (*signupCmd) Usage() string {
	return `signup -u <username> -e <email> [-n <name>] [-p <password>]:
  Registers an account. A verification link is mailed to the address.
`
}
func (c *signupCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.username, "u", "", "username")
	f.StringVar(&c.email, "e", "", "email")
	f.StringVar(&c.name, "n", "", "display name (defaults to username)")
	f.StringVar(&c.password, "p", "", "password (prompted when empty)")
}
func (c *signupCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.username == "" || c.email == "" {
		return c.g.usageError(f, "-u and -e are required")
	}
	pw, err := c.g.password(c.password, "Password")
	if err != nil {
		return c.g.fail(err)
	}
	name := c.name
	if name == "" {
		name = c.username
	}
	return c.g.run(ctx, func(ctx context.Context, cl *client) error {
		acc, err := cl.auth.Signup(ctx, &api.SignupRequest{Username: c.username, Password: pw, Name: name, Email: c.email})
		if err != nil {
			return err
		}
		fmt.Fprintf(c.g.out, "registered %s; check %s for the verification link\n", acc.Username, acc.Email)
		return nil
	})
}

type verifyCmd struct{ g *globals }

func (*verifyCmd) Name() string           { return "verify" }
func (*verifyCmd) Synopsis() string       { return "confirm an email address" }
func (*verifyCmd) Usage() string          { return "verify <token>\n" }
func (*verifyCmd) SetFlags(*flag.FlagSet) {}
func (c *verifyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return c.g.usageError(f, "expected one verification token")
	}
	return c.g.run(ctx, func(ctx context.Context, cl *client) error {
		if _, err := cl.auth.Verify(ctx, &api.VerifyRequest{Token: f.Arg(0)}); err != nil {
			return err
		}
		fmt.Fprintln(c.g.out, "email verified")
		return nil
	})
}

type loginCmd struct {
	g                  *globals
	username, password string
}

func (*loginCmd) Name() string     { return "login" }
func (*loginCmd) Synopsis() string { return "log in and store the session" }
func (*loginCmd) Usage() string    { return "login -u <username> [-p <password>]\n" }
func (c *loginCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.username, "u", "", "username")
	f.StringVar(&c.password, "p", "", "password (prompted when empty)")
}
func (c *loginCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.username == "" {
		return c.g.usageError(f, "-u is required")
	}
	pw, err := c.g.password(c.password, "Password")
	if err != nil {
		return c.g.fail(err)
	}
	return c.g.run(ctx, func(ctx context.Context, cl *client) error {
		tok, err := cl.auth.Login(ctx, &api.LoginRequest{Username: c.username, Password: pw})
		if err != nil {
			return err
		}
		s := &session{Username: c.username}
		s.update(tok)
		if err := saveSession(s); err != nil {
			return err
		}
		fmt.Fprintf(c.g.out, "logged in as %s\n", c.username)
		return nil
	})
}

type refreshCmd struct{ g *globals }

func (*refreshCmd) Name() string           { return "refresh" }
func (*refreshCmd) Synopsis() string       { return "rotate the stored token pair" }
func (*refreshCmd) Usage() string          { return "refresh\n" }
func (*refreshCmd) SetFlags(*flag.FlagSet) {}
func (c *refreshCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.g.run(ctx, func(ctx context.Context, cl *client) error {
		if err := cl.refresh(ctx); err != nil {
			return err
		}
		fmt.Fprintf(c.g.out, "access token valid until %s\n", cl.sess.AccessExpiresAt.Local().Format(time.RFC3339))
		return nil
	})
}

type whoamiCmd struct {
	g       *globals
	jsonOut bool
}

func (*whoamiCmd) Name() string     { return "whoami" }
func (*whoamiCmd) Synopsis() string { return "show the logged-in account" }
func (*whoamiCmd) Usage() string    { return "whoami [-json]\n" }
func (c *whoamiCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.jsonOut, "json", false, "print JSON")
}
func (c *whoamiCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.g.run(ctx, func(ctx context.Context, cl *client) error {
		var acc *api.Account
		err := cl.authed(ctx, func(ctx context.Context) (err error) {
			acc, err = cl.auth.Me(ctx, &api.Empty{})
			return err
		})
		if err != nil {
			return err
		}
		if c.jsonOut {
			return printJSON(c.g.out, acc)
		}
		verified := "unverified"
		if acc.EmailVerified {
			verified = "verified"
		}
		fmt.Fprintf(c.g.out, "%s (%s) <%s, %s>\n", acc.Username, acc.Name, acc.Email, verified)
		return nil
	})
}

// sessionCmd inspects the stored session offline.
type sessionCmd struct{ g *globals }

func (*sessionCmd) Name() string           { return "session" }
func (*sessionCmd) Synopsis() string       { return "show the stored session without contacting the server" }
func (*sessionCmd) Usage() string          { return "session\n" }
func (*sessionCmd) SetFlags(*flag.FlagSet) {}
func (c *sessionCmd) Execute(context.Context, *flag.FlagSet, ...interface{}) subcommands.ExitStatus {
	s, err := loadSession()
	if err != nil {
		return c.g.fail(err)
	}
	subject := s.Username
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(s.AccessToken, &claims); err == nil && claims.Subject != "" {
		subject = claims.Subject
	}
	now := time.Now()
	fmt.Fprintf(c.g.out, "user:    %s\naccess:  %s\nrefresh: %s\n",
		subject, describeExpiry(s.AccessExpiresAt, now), describeExpiry(s.RefreshExpiresAt, now))
	return subcommands.ExitSuccess
}

func describeExpiry(at, now time.Time) string {
	if at.IsZero() {
		return "unknown"
	}
	if !now.Before(at) {
		return "expired"
	}
	return "valid for " + at.Sub(now).Round(time.Second).String()
}

type logoutCmd struct{ g *globals }

func (*logoutCmd) Name() string           { return "logout" }
func (*logoutCmd) Synopsis() string       { return "revoke the refresh token and forget the session" }
func (*logoutCmd) Usage() string          { return "logout\n" }
func (*logoutCmd) SetFlags(*flag.FlagSet) {}
func (c *logoutCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.g.run(ctx, func(ctx context.Context, cl *client) error {
		err := cl.authed(ctx, func(ctx context.Context) error {
			_, err := cl.auth.Logout(ctx, &api.Empty{})
			return err
		})
		if err != nil && !errors.Is(err, errNoSession) {
			return err
		}
		if err := clearSession(); err != nil {
			return err
		}
		fmt.Fprintln(c.g.out, "logged out")
		return nil
	})
}

type holdingsCmd struct {
	g       *globals
	jsonOut bool
}

func (*holdingsCmd) Name() string     { return "holdings" }
func (*holdingsCmd) Synopsis() string { return "list holdings with current valuation" }
func (*holdingsCmd) Usage() string    { return "holdings [-json]\n" }
func (c *holdingsCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.jsonOut, "json", false, "print JSON")
}
func (c *holdingsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.g.run(ctx, func(ctx context.Context, cl *client) error {
		var list *api.HoldingList
		err := cl.authed(ctx, func(ctx context.Context) (err error) {
			list, err = cl.holdings.List(ctx, &api.Empty{})
			return err
		})
		if err != nil {
			return err
		}
		if c.jsonOut {
			return printJSON(c.g.out, list)
		}
		return printHoldings(c.g.out, list)
	})
}

type putCmd struct {
	g          *globals
	code, name string
	price      string
	quantity   int64
}

func (*putCmd) Name() string     { return "put" }
func (*putCmd) Synopsis() string { return "add or replace a holding" }
func (*putCmd) Usage() string {
	return "put -code <stock code> -price <average price> -qty <quantity> [-name <stock name>]\n"
}
func (c *putCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.code, "code", "", "stock code")
	f.StringVar(&c.name, "name", "", "stock name (looked up when empty)")
	f.StringVar(&c.price, "price", "", "average purchase price")
	f.Int64Var(&c.quantity, "qty", 0, "quantity")
}
func (c *putCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.code == "" || c.price == "" || c.quantity <= 0 {
		return c.g.usageError(f, "-code, -price and a positive -qty are required")
	}
	price, err := decimal.NewFromString(c.price)
	if err != nil {
		return c.g.usageError(f, "bad -price: "+err.Error())
	}
	return c.g.run(ctx, func(ctx context.Context, cl *client) error {
		name := c.name
		if name == "" {
			d, err := cl.holdings.Detail(ctx, &api.DetailRequest{Code: c.code})
			if err != nil {
				return err
			}
			name = d.Name
		}
		req := &api.PutHoldingRequest{StockCode: c.code, StockName: name, AveragePrice: price, Quantity: c.quantity}
		var h *api.Holding
		err := cl.authed(ctx, func(ctx context.Context) (err error) {
			h, err = cl.holdings.Put(ctx, req)
			return err
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(c.g.out, "%s %s: %d @ %s\n", h.StockCode, h.StockName, h.Quantity, won(h.AveragePrice))
		return nil
	})
}

type rmCmd struct{ g *globals }

func (*rmCmd) Name() string           { return "rm" }
func (*rmCmd) Synopsis() string       { return "remove a holding" }
func (*rmCmd) Usage() string          { return "rm <stock code>\n" }
func (*rmCmd) SetFlags(*flag.FlagSet) {}
func (c *rmCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return c.g.usageError(f, "expected one stock code")
	}
	return c.g.run(ctx, func(ctx context.Context, cl *client) error {
		err := cl.authed(ctx, func(ctx context.Context) error {
			_, err := cl.holdings.Delete(ctx, &api.DeleteHoldingRequest{StockCode: f.Arg(0)})
			return err
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(c.g.out, "removed %s\n", f.Arg(0))
		return nil
	})
}

type searchCmd struct {
	g       *globals
	jsonOut bool
}

func (*searchCmd) Name() string     { return "search" }
func (*searchCmd) Synopsis() string { return "search the stock catalog" }
func (*searchCmd) Usage() string    { return "search [-json] <query>\n" }
func (c *searchCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.jsonOut, "json", false, "print JSON")
}
func (c *searchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	query := strings.Join(f.Args(), " ")
	return c.g.run(ctx, func(ctx context.Context, cl *client) error {
		list, err := cl.holdings.Search(ctx, &api.SearchRequest{Query: query})
		if err != nil {
			return err
		}
		if c.jsonOut {
			return printJSON(c.g.out, list)
		}
		for _, s := range list.Stocks {
			fmt.Fprintf(c.g.out, "%s\t%s\n", s.Code, s.Name)
		}
		return nil
	})
}

type quoteCmd struct{ g *globals }

func (*quoteCmd) Name() string           { return "quote" }
func (*quoteCmd) Synopsis() string       { return "show the current price of a stock" }
func (*quoteCmd) Usage() string          { return "quote <stock code>\n" }
func (*quoteCmd) SetFlags(*flag.FlagSet) {}
func (c *quoteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return c.g.usageError(f, "expected one stock code")
	}
	return c.g.run(ctx, func(ctx context.Context, cl *client) error {
		d, err := cl.holdings.Detail(ctx, &api.DetailRequest{Code: f.Arg(0)})
		if err != nil {
			return err
		}
		fmt.Fprintf(c.g.out, "%s %s %s\n", d.Code, d.Name, won(d.CurrentPrice))
		return nil
	})
}
