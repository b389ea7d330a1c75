package cli

import (
	"context"
	"io"
	"net"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/autodocs/autodocs/internal/viewer"
)

// ViewConfig captures the options for the view command.
type ViewConfig struct {
	Dir  string
	Addr string

	stdout io.Writer
	logger hclog.Logger
}

var viewRunner = runView

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Serve generated Markdown docs over HTTP",
		Long: "Serve the Markdown documents of an output directory as HTML. " +
			"The directory defaults to the configured output directory.",
		Example: strings.TrimSpace(`  autodocs view
  autodocs view --dir ./docs --addr 127.0.0.1:8080`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			dir := cfg.Output
			if cmd.Flags().Changed("dir") {
				dir, _ = cmd.Flags().GetString("dir")
			}
			addr, _ := cmd.Flags().GetString("addr")
			if strings.TrimSpace(dir) == "" {
				return newUsageError("view: --dir must not be empty")
			}
			return viewRunner(cmd.Context(), &ViewConfig{
				Dir:    strings.TrimSpace(dir),
				Addr:   strings.TrimSpace(addr),
				stdout: cmd.OutOrStdout(),
				logger: loggerFor(cmd),
			})
		},
	}

	cmd.Flags().String("dir", "", "Directory holding the generated docs; defaults to output")
	cmd.Flags().String("addr", ":3000", "Address to listen on")

	return cmd
}

func runView(ctx context.Context, cfg *ViewConfig) error {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return newUsageError("view: " + err.Error())
	}
	okColor.Fprintf(cfg.stdout, "View your docs at %s\n", browseURL(ln.Addr()))
	return viewer.New(cfg.Dir, cfg.logger.Named("viewer")).Serve(ctx, ln)
}

// browseURL maps a wildcard listen address to one a browser can open.
func browseURL(addr net.Addr) string {
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return "http://" + addr.String()
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}
