package main

// workload_gen.go is a tiny helper utility to generate deterministic
// (device, block_no) workloads for standalone benchmarking of bufcache
// outside `go test`. It emits newline-separated "device:block_no" pairs
// which can later be fed to external load-testers.
//
// Usage:
//
//	go run ./tools/workload_gen -n 1000000 -dist=zipf -seed=42 -out workload.txt
//
// Flags:
//
//	-n        number of block accesses to generate (default 1e6)
//	-dist     distribution: "uniform" or "zipf" (default uniform)
//	-zipfs    Zipf s parameter (>1)  (default 1.2)
//	-zipfv    Zipf v parameter (>=1) (default 1.0)
//	-devices  number of distinct device IDs to spread accesses over (default 1)
//	-blocks   number of distinct block numbers per device (default 1e6)
//	-seed     RNG seed (default current time)
//	-out      output file (default stdout)
//
// © 2025 bufcache authors. MIT License.

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"
)

func main() {
	var (
		n       = flag.Int("n", 1_000_000, "number of block accesses to generate")
		dist    = flag.String("dist", "uniform", "distribution: uniform or zipf")
		zipfS   = flag.Float64("zipfs", 1.2, "zipf s parameter (>1)")
		zipfV   = flag.Float64("zipfv", 1.0, "zipf v parameter (>=1)")
		devices = flag.Int("devices", 1, "number of distinct device IDs")
		blocks  = flag.Uint64("blocks", 1_000_000, "number of distinct block numbers per device")
		seedVal = flag.Int64("seed", time.Now().UnixNano(), "PRNG seed")
		outPath = flag.String("out", "", "output file (default stdout)")
	)
	flag.Parse()

	if *devices <= 0 {
		fmt.Fprintln(os.Stderr, "devices must be > 0")
		os.Exit(1)
	}

	rnd := rand.New(rand.NewSource(*seedVal))

	var gen func() uint64
	switch *dist {
	case "uniform":
		gen = func() uint64 { return rnd.Uint64() % *blocks }
	case "zipf":
		if *zipfS <= 1.0 || *zipfV < 1.0 {
			fmt.Fprintln(os.Stderr, "zipfs must be >1 and zipfv >=1")
			os.Exit(1)
		}
		z := rand.NewZipf(rnd, *zipfS, *zipfV, *blocks-1)
		gen = z.Uint64
	default:
		fmt.Fprintln(os.Stderr, "unknown dist:", *dist)
		os.Exit(1)
	}

	var out *os.File
	var err error
	if *outPath == "" {
		out = os.Stdout
	} else {
		out, err = os.Create(*outPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "cannot create file:", err)
			os.Exit(1)
		}
		defer out.Close()
	}

	w := bufio.NewWriterSize(out, 1<<20)
	defer w.Flush()

	for i := 0; i < *n; i++ {
		device := rnd.Intn(*devices)
		fmt.Fprintf(w, "%d:%d\n", device, gen())
	}
}
