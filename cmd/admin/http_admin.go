package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

func statsCmd(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8554", "admin base url")
	_ = fs.Parse(args)

	u := strings.TrimRight(strings.TrimSpace(*baseURL), "/") + "/admin/v1/stats"
	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Get(u)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(string(b))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}

func claimsCmd(args []string) {
	fs := flag.NewFlagSet("claims", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8554", "admin base url")
	worldID := fs.String("world", "", "world filter (optional)")
	owner := fs.String("owner", "", "owner uuid filter (optional)")
	_ = fs.Parse(args)

	q := url.Values{}
	if strings.TrimSpace(*worldID) != "" {
		q.Set("world", strings.TrimSpace(*worldID))
	}
	if strings.TrimSpace(*owner) != "" {
		q.Set("owner", strings.TrimSpace(*owner))
	}
	u := strings.TrimRight(strings.TrimSpace(*baseURL), "/") + "/admin/v1/claims"
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	cl := &http.Client{Timeout: 10 * time.Second}
	resp, err := cl.Get(u)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(string(b))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}
