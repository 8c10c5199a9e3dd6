package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/nicwaller/proxy-fetch/pkg/config"
	"github.com/nicwaller/proxy-fetch/pkg/connector"
	"github.com/nicwaller/proxy-fetch/pkg/proxy"
)

var options struct {
	format     string
	debug      bool
	configPath string
	output     string
	verify     bool
	install    bool
	probe      string
}

// loaded in PersistentPreRunE
var settings *config.Config

var rootCmd = &cobra.Command{
	Use:   "proxy-fetch",
	Short: "Read and publish repository artifacts over HTTP",
	Long: `proxy-fetch downloads, inspects, lists and uploads artifacts in HTTP
repositories such as Maven mirrors. The proxy configured on the host (desktop
settings, browser, environment) is detected and used automatically.`,
	Example: `  proxy-fetch get https://repo.maven.apache.org/maven2/junit/junit/4.13.2/junit-4.13.2.pom
  proxy-fetch head https://repo.maven.apache.org/maven2/junit/junit/4.13.2/junit-4.13.2.jar --format=json
  proxy-fetch proxy`,
	SilenceUsage: true,
}

var getCmd = &cobra.Command{
	Use:   "get <uri>",
	Short: "Download a resource",
	Long: `Download a resource to stdout or to the file given with --output.
When the server advertises a SHA-1 checksum the content is verified.`,
	Args:    cobra.ExactArgs(1),
	Example: `  proxy-fetch get https://repo.example.com/maven2/org/example/lib/1.0/lib-1.0.jar -o lib.jar`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGet(cmd.Context(), args[0], options.output, options.verify)
	},
}

var rawCmd = &cobra.Command{
	Use:   "raw <uri>",
	Short: "Print a response whatever its status",
	Long: `Print the status line to stderr and the body to stdout, including the
body of error responses.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRaw(cmd.Context(), args[0])
	},
}

var headCmd = &cobra.Command{
	Use:     "head <uri>",
	Short:   "Show the metadata of a resource",
	Args:    cobra.ExactArgs(1),
	Example: `  proxy-fetch head https://repo.example.com/maven2/org/example/lib/1.0/lib-1.0.jar --format=tsv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHead(cmd.Context(), args[0], options.format)
	},
}

var listCmd = &cobra.Command{
	Use:     "list <uri>",
	Short:   "List the entries of a directory index",
	Args:    cobra.ExactArgs(1),
	Example: `  proxy-fetch list https://repo.maven.apache.org/maven2/junit/junit/`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runList(cmd.Context(), args[0], options.format)
	},
}

var putCmd = &cobra.Command{
	Use:     "put <file> <uri>",
	Short:   "Upload a file",
	Args:    cobra.ExactArgs(2),
	Example: `  proxy-fetch put target/lib-1.0.jar https://repo.example.com/releases/org/example/lib/1.0/lib-1.0.jar`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPut(cmd.Context(), args[0], args[1])
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <uri>...",
	Short: "Check that resources exist",
	Long: `Request the metadata of every URI and report which exist, which are
missing and which could not be checked.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCheck(cmd.Context(), args, options.format)
	},
}

var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Show the detected proxy configuration",
	Long: `Run the proxy detection cascade and print what was found. With --install
the result also becomes the default for this process and is published as
HTTP_PROXY.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProxy(cmd.Context(), options.format, options.install, options.probe)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&options.format, "format", "f", "text",
		"Output format (text, json, tsv)")
	rootCmd.PersistentFlags().BoolVar(&options.debug, "debug", false,
		"Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&options.configPath, "config", "c", "",
		"Path to a YAML or TOML config file")

	getCmd.Flags().StringVarP(&options.output, "output", "o", "",
		"Write to this file instead of stdout")
	getCmd.Flags().BoolVar(&options.verify, "verify", true,
		"Verify the SHA-1 checksum advertised by the server")
	proxyCmd.Flags().BoolVar(&options.install, "install", false,
		"Install the detected proxy as the process default")
	proxyCmd.Flags().StringVar(&options.probe, "probe", proxy.DefaultProbeURL,
		"URL used to pick the proxy published by --install")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if options.debug {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}

		validFormats := []string{"text", "json", "tsv"}
		valid := false
		for _, validFormat := range validFormats {
			if options.format == validFormat {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("invalid format '%s'. Valid formats: %s",
				options.format, strings.Join(validFormats, ", "))
		}

		if options.configPath == "" {
			settings = config.Default()
			return nil
		}
		var err error
		settings, err = config.Load(options.configPath)
		return err
	}

	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(rawCmd)
	rootCmd.AddCommand(headCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(putCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(proxyCmd)
}

// loadTransports registers the transports for the loaded settings
func loadTransports(cfg *config.Config) *connector.Registry {
	var opts []connector.FactoryOption
	switch {
	case cfg.ManualProxy() != nil:
		opts = append(opts, connector.WithProxy(cfg.ManualProxy()))
	case !cfg.Proxy.Detect:
		// only what the environment says
		opts = append(opts, connector.WithDetector(proxy.NewDetector(proxy.WithStrategies(proxy.NewEnvStrategy()))))
	}
	if cfg.Proxy.Install {
		opts = append(opts, connector.WithInstall(cfg.ProbeURL()))
	}

	r := connector.NewRegistry()
	r.Register(connector.NewHTTPFactory(opts...))
	return r
}

func connectionSpec(cfg *config.Config) connector.ConnectionSpec {
	return connector.ConnectionSpec{
		Auth:           cfg.Authentication(),
		TLS:            cfg.TLSProvider(),
		ConnectTimeout: cfg.ConnectTimeout.Std(),
		ReadTimeout:    cfg.ReadTimeout.Std(),
		UserAgent:      cfg.UserAgent,
	}
}

// connect parses rawURI and opens a connector for it
func connect(ctx context.Context, cfg *config.Config, rawURI string) (*connector.Connector, *url.URL, error) {
	uri, err := parseURI(rawURI)
	if err != nil {
		return nil, nil, err
	}
	c, err := loadTransports(cfg).Connect(ctx, uri, connectionSpec(cfg))
	if err != nil {
		return nil, nil, err
	}
	return c, uri, nil
}

func parseURI(raw string) (*url.URL, error) {
	uri, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid URI %q: %w", raw, err)
	}
	if uri.Scheme == "" || uri.Host == "" {
		return nil, fmt.Errorf("invalid URI %q: scheme and host are required", raw)
	}
	return uri, nil
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:     os.Stderr,
		NoColor: false,
	})
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Fatal().Msgf("%v", err)
	}
}
