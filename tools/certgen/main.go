// Command certgen writes a development CA and a server certificate for the
// API server. Point the server at server.crt/server.key (TLS_CERT_FILE,
// TLS_KEY_FILE) and the portal client at ca.crt (PORTAL_CA_FILE).
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atinyakov/CampusPortal/internal/certgen"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "certgen:", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("certgen", flag.ContinueOnError)
	dir := fs.String("dir", "certs", "output directory")
	hosts := fs.String("hosts", "localhost,127.0.0.1", "comma-separated server host names and IPs")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var list []string
	for _, h := range strings.Split(*hosts, ",") {
		if h = strings.TrimSpace(h); h != "" {
			list = append(list, h)
		}
	}
	if err := certgen.WriteDevBundle(*dir, list); err != nil {
		return err
	}
	fmt.Fprintf(out, "certificates written to %s\n", *dir)
	return nil
}
