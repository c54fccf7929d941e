// Package main provides a minimal HTTP healthcheck binary for container
// probes. It GETs a URL and exits 0 on a 2xx response, 1 otherwise.
// Usage: healthcheck [-timeout 5s] [url]
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"
)

const defaultURL = "http://localhost:8080/readyz"

func main() {
	timeout := flag.Duration("timeout", 5*time.Second, "Request timeout")
	flag.Parse()

	url := defaultURL
	if flag.NArg() > 0 {
		url = flag.Arg(0)
	}

	if err := probe(&http.Client{Timeout: *timeout}, url); err != nil {
		fmt.Fprintf(os.Stderr, "healthcheck failed: %v\n", err)
		os.Exit(1)
	}
}

func probe(client *http.Client, url string) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
