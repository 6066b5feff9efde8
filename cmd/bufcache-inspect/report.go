package main

// report.go holds the HTTP calls and output formatting main.go dispatches
// to: pulling a snapshot or a pprof profile from the target process and
// rendering it to stdout or disk.

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/Voskan/bufcache/pkg/bufcache"
)

func fetchSnapshot(ctx context.Context, base string) (*bufcache.CacheSnapshot, error) {
	res, err := get(ctx, base+"/debug/bufcache/snapshot")
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	var snap bufcache.CacheSnapshot
	if err := json.NewDecoder(res.Body).Decode(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func printSnapshot(snap *bufcache.CacheSnapshot, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	fmt.Printf("NBUF:    %d\n", snap.NBUF)
	fmt.Printf("NBUCKET: %d\n", snap.NBUCKET)
	fmt.Printf("BSIZE:   %d\n", snap.BSIZE)
	fmt.Printf("Pinned:  %d/%d\n", snap.Pinned, snap.NBUF)
	fmt.Println()
	fmt.Printf("%-6s %-8s %-7s %-7s %-9s %-7s\n", "bucket", "buffers", "pinned", "hits", "recycles", "steals")
	for _, b := range snap.Buckets {
		fmt.Printf("%-6d %-8d %-7d %-7d %-9d %-7d\n", b.Index, b.Buffers, b.Pinned, b.Hits, b.LocalRecycles, b.Steals)
	}
	return nil
}

func saveProfile(ctx context.Context, base, name, path string) error {
	res, err := get(ctx, fmt.Sprintf("%s/debug/pprof/%s", base, name))
	if err != nil {
		return err
	}
	defer res.Body.Close()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, res.Body); err != nil {
		return err
	}
	fmt.Printf("%s profile saved to %s\n", name, path)
	return nil
}

func get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusOK {
		res.Body.Close()
		return nil, fmt.Errorf("unexpected status %s", res.Status)
	}
	return res, nil
}
