// Command sf is a CLI client for the stockfolio gRPC API.
package main

import (
	"context"
	"flag"
	"io"
	"os"
	"path"

	"github.com/google/subcommands"
	"google.golang.org/grpc"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// globals holds the top-level flags shared by every command.
type globals struct {
	addr      string
	caPath    string
	insecure  bool
	plaintext bool

	out    io.Writer
	stderr io.Writer
	in     io.Reader
	dial   func() (*grpc.ClientConn, error)
}

func (g *globals) register(fs *flag.FlagSet) {
	fs.StringVar(&g.addr, "addr", "localhost:8443", "server addr")
	fs.StringVar(&g.caPath, "cacert", "", "CA cert (PEM)")
	fs.BoolVar(&g.insecure, "insecure", false, "skip cert verify (dev)")
	fs.BoolVar(&g.plaintext, "plaintext", false, "connect without TLS (dev)")
}

func newCommander(g *globals, fs *flag.FlagSet, name string) *subcommands.Commander {
	cdr := subcommands.NewCommander(fs, name)
	cdr.Output = g.out
	cdr.Error = g.stderr
	cdr.Register(cdr.HelpCommand(), "")
	cdr.Register(cdr.CommandsCommand(), "")
	cdr.Register(&versionCmd{g: g}, "")

	cdr.Register(&signupCmd{g: g}, "account")
	cdr.Register(&verifyCmd{g: g}, "account")
	cdr.Register(&loginCmd{g: g}, "account")
	cdr.Register(&refreshCmd{g: g}, "account")
	cdr.Register(&whoamiCmd{g: g}, "account")
	cdr.Register(&sessionCmd{g: g}, "account")
	cdr.Register(&logoutCmd{g: g}, "account")

	cdr.Register(&holdingsCmd{g: g}, "portfolio")
	cdr.Register(&putCmd{g: g}, "portfolio")
	cdr.Register(&rmCmd{g: g}, "portfolio")
	cdr.Register(&searchCmd{g: g}, "portfolio")
	cdr.Register(&quoteCmd{g: g}, "portfolio")
	return cdr
}

func main() {
	g := &globals{out: os.Stdout, stderr: os.Stderr, in: os.Stdin}
	g.register(flag.CommandLine)
	cdr := newCommander(g, flag.CommandLine, path.Base(os.Args[0]))
	flag.Parse()
	os.Exit(int(cdr.Execute(context.Background())))
}
