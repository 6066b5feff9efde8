package main

// flags.go defines the inspector's command-line surface. Split out from
// main.go so the flag set and its defaults are reviewable independently of
// the dispatch logic.
//
// © 2025 bufcache authors. MIT License.

import (
	"flag"
	"time"
)

// options holds every flag the inspector accepts.
type options struct {
	target           string
	watch            bool
	interval         time.Duration
	json             bool
	version          bool
	heapProfile      string
	goroutineProfile string
}

func parseFlags() *options {
	o := &options{}
	flag.StringVar(&o.target, "target", "http://localhost:6060", "base URL of the service exposing the bufcache debug endpoint")
	flag.BoolVar(&o.watch, "watch", false, "poll the snapshot endpoint repeatedly instead of a single dump")
	flag.DurationVar(&o.interval, "interval", 2*time.Second, "polling interval when -watch is set")
	flag.BoolVar(&o.json, "json", false, "print the raw JSON snapshot instead of a formatted summary")
	flag.BoolVar(&o.version, "version", false, "print the inspector's version and exit")
	flag.StringVar(&o.heapProfile, "heap-profile", "", "download /debug/pprof/heap to this path and exit")
	flag.StringVar(&o.goroutineProfile, "goroutine-profile", "", "download /debug/pprof/goroutine to this path and exit")
	flag.Parse()
	return o
}
