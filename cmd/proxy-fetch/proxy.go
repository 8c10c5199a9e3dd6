package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/nicwaller/proxy-fetch/pkg/proxy"
)

// ProxyOutput is the printed form of a detected proxy configuration
type ProxyOutput struct {
	Found      bool   `json:"found"`
	Source     string `json:"source,omitempty"`
	HTTPProxy  string `json:"http_proxy,omitempty"`
	HTTPSProxy string `json:"https_proxy,omitempty"`
	NoProxy    string `json:"no_proxy,omitempty"`
	Probe      string `json:"probe,omitempty"`
	ProbeProxy string `json:"probe_proxy,omitempty"`
	Published  string `json:"published,omitempty"`
}

func runProxy(ctx context.Context, format string, install bool, rawProbe string) error {
	probe, err := parseURI(rawProbe)
	if err != nil {
		return err
	}

	cfg := settings.ManualProxy()
	if cfg == nil {
		cfg = proxy.NewDetector().Detect(ctx)
	}

	out := newProxyOutput(cfg, probe.String())
	if !cfg.Empty() {
		if selected, err := cfg.Select(probe); err != nil {
			log.Warn().Err(err).Msg("proxy: invalid proxy value")
		} else if selected != nil {
			out.ProbeProxy = selected.String()
		}
	}
	if install {
		if published := proxy.Install(cfg, probe); published != nil {
			out.Published = published.String()
		}
	}
	return outputProxy(os.Stdout, out, format)
}

func newProxyOutput(cfg *proxy.Config, probe string) ProxyOutput {
	if cfg == nil {
		return ProxyOutput{Probe: probe}
	}
	return ProxyOutput{
		Found:      !cfg.Empty(),
		Source:     cfg.Source,
		HTTPProxy:  cfg.HTTPProxy,
		HTTPSProxy: cfg.HTTPSProxy,
		NoProxy:    cfg.NoProxy,
		Probe:      probe,
	}
}

func outputProxy(w io.Writer, p ProxyOutput, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(p)

	case "tsv":
		fmt.Fprintf(w, "field\tvalue\n")
		fmt.Fprintf(w, "found\t%t\n", p.Found)
		fmt.Fprintf(w, "source\t%s\n", p.Source)
		fmt.Fprintf(w, "http_proxy\t%s\n", p.HTTPProxy)
		fmt.Fprintf(w, "https_proxy\t%s\n", p.HTTPSProxy)
		fmt.Fprintf(w, "no_proxy\t%s\n", p.NoProxy)
		fmt.Fprintf(w, "probe\t%s\n", p.Probe)
		fmt.Fprintf(w, "probe_proxy\t%s\n", p.ProbeProxy)
		fmt.Fprintf(w, "published\t%s\n", p.Published)
		return nil

	case "text":
		fallthrough
	default:
		if !p.Found {
			fmt.Fprintf(w, "No proxy configuration found, connecting directly\n")
			return nil
		}
		fmt.Fprintf(w, "Source: %s\n", p.Source)
		if p.HTTPProxy != "" {
			fmt.Fprintf(w, "HTTP Proxy: %s\n", p.HTTPProxy)
		}
		if p.HTTPSProxy != "" {
			fmt.Fprintf(w, "HTTPS Proxy: %s\n", p.HTTPSProxy)
		}
		if p.NoProxy != "" {
			fmt.Fprintf(w, "No Proxy: %s\n", p.NoProxy)
		}
		if p.ProbeProxy != "" {
			fmt.Fprintf(w, "Proxy for %s: %s\n", p.Probe, p.ProbeProxy)
		} else {
			fmt.Fprintf(w, "Proxy for %s: direct\n", p.Probe)
		}
		if p.Published != "" {
			fmt.Fprintf(w, "Published: HTTP_PROXY=%s\n", p.Published)
		}
		return nil
	}
}
