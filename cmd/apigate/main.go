// apigate is an API gateway that runs catalogued origin operations on
// behalf of projects.
//
// It authenticates project keys, builds and dispatches the origin request
// with the project's stored credentials, relays the response and keeps a
// request log of every call.
//
// Usage:
//
//	# Start the gateway
//	apigate run --config config.yaml
//
//	# Check configuration and catalog without starting
//	apigate validate --config config.yaml
//
//	# Inspect stored request logs
//	apigate logs query --project proj_1 --status error
//
//	# Apply the retention policy now
//	apigate logs prune
package main

import "os"

func main() {
	os.Exit(Execute())
}
