package tools

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"
)

// RegisterNetworkTools adds the HTTP and DNS inspection tools.
func RegisterNetworkTools(r *Registry) {
	r.MustRegister(httpHeadersTool())
	r.MustRegister(dnsLookupTool())
}

func httpHeadersTool() *Tool {
	client := &http.Client{Timeout: 10 * time.Second}
	return &Tool{
		Name:        "http_headers",
		Description: "Fetch a URL and return the response status and headers without the body.",
		Category:    CategoryNetwork,
		Schema: Schema{
			Required: []string{"url"},
			Properties: map[string]Property{
				"url": {Type: "string", Description: "HTTP or HTTPS URL to probe."},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			url := stringArg(args, "url")
			if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
				return "", fmt.Errorf("url must start with http:// or https://")
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
			if err != nil {
				return "", fmt.Errorf("building request: %w", err)
			}
			resp, err := client.Do(req)
			if err != nil {
				return "", fmt.Errorf("fetching headers: %w", err)
			}
			defer resp.Body.Close()

			keys := make([]string, 0, len(resp.Header))
			for k := range resp.Header {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			var b strings.Builder
			fmt.Fprintf(&b, "%s %s\n", resp.Proto, resp.Status)
			for _, k := range keys {
				fmt.Fprintf(&b, "%s: %s\n", k, strings.Join(resp.Header[k], ", "))
			}
			return strings.TrimRight(b.String(), "\n"), nil
		},
	}
}

func dnsLookupTool() *Tool {
	resolver := &net.Resolver{}
	return &Tool{
		Name:        "dns_lookup",
		Description: "Resolve a hostname: A/AAAA addresses, CNAME, MX, NS and TXT records.",
		Category:    CategoryNetwork,
		Schema: Schema{
			Required: []string{"host"},
			Properties: map[string]Property{
				"host": {Type: "string", Description: "Hostname to resolve."},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			host := stringArg(args, "host")
			ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			var b strings.Builder

			addrs, err := resolver.LookupHost(ctx, host)
			if err != nil {
				return "", fmt.Errorf("resolving %s: %w", host, err)
			}
			sort.Strings(addrs)
			for _, a := range addrs {
				fmt.Fprintf(&b, "address: %s\n", a)
			}

			if cname, err := resolver.LookupCNAME(ctx, host); err == nil && cname != host+"." {
				fmt.Fprintf(&b, "cname: %s\n", cname)
			}
			if mxs, err := resolver.LookupMX(ctx, host); err == nil {
				for _, mx := range mxs {
					fmt.Fprintf(&b, "mx: %s (pref %d)\n", mx.Host, mx.Pref)
				}
			}
			if nss, err := resolver.LookupNS(ctx, host); err == nil {
				for _, ns := range nss {
					fmt.Fprintf(&b, "ns: %s\n", ns.Host)
				}
			}
			if txts, err := resolver.LookupTXT(ctx, host); err == nil {
				for _, txt := range txts {
					fmt.Fprintf(&b, "txt: %s\n", txt)
				}
			}

			return strings.TrimRight(b.String(), "\n"), nil
		},
	}
}
