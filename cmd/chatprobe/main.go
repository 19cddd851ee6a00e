// chatprobe is a tiny liveness probe for container health checks: it GETs
// the server's /healthz and exits non-zero unless it answers 200.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/valyala/fasthttp"
)

func main() {
	url := flag.String("url", "http://127.0.0.1:8080/healthz", "health endpoint to probe")
	timeout := flag.Duration("timeout", 3*time.Second, "request timeout")
	flag.Parse()

	c := &fasthttp.Client{
		ReadTimeout:  *timeout,
		WriteTimeout: *timeout,
	}
	status, _, err := c.GetTimeout(nil, *url, *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "probe failed: %v\n", err)
		os.Exit(1)
	}
	if status != fasthttp.StatusOK {
		fmt.Fprintf(os.Stderr, "probe failed: status %d\n", status)
		os.Exit(1)
	}
}
