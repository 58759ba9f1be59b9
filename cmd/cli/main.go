// sippstat - SIPp statistics normalizer
//
// sippstat reads the statistics file written by the SIPp load generator and
// turns it into a normalized time series for reports, charts and webhooks.
package main

import (
	"os"

	"github.com/ccollicutt/sippstat/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
