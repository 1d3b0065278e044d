// Package clientrun implements the CLI-side client commands: it brings up
// an ephemeral node against a remote server and reports the handshake
// outcome. Useful as a connectivity check against a running tetherd.
package clientrun

import (
	"context"
	"fmt"
	"io"
	"os"

	cfgpkg "github.com/rzbill/tether/internal/config"
	"github.com/rzbill/tether/pkg/bridge"
)

type Options struct {
	Endpoint string
	DataDir  string
	Config   cfgpkg.Config
}

// Ping connects to the endpoint as an ephemeral peer, waits for the sync
// handshake, and writes the adopted root to out. The client's scratch
// storage is discarded unless a data dir was given.
func Ping(ctx context.Context, out io.Writer, opts Options) error {
	cfg := opts.Config
	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	} else {
		scratch, err := os.MkdirTemp("", "tether-client-*")
		if err != nil {
			return err
		}
		defer os.RemoveAll(scratch)
		cfg.DataDir = scratch
	}

	b := bridge.New(cfg)
	defer b.Close()
	if err := b.InitNode(ctx, opts.Endpoint); err != nil {
		return err
	}
	node, err := b.Node()
	if err != nil {
		return err
	}
	root, _ := node.System().Root()
	fmt.Fprintf(out, "connected to %s\nnode: %s\nroot: %s\n", opts.Endpoint, node.ID, root)
	return nil
}
