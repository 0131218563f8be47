// Command gatekeeper is the policy enforcement gateway CLI. It is invoked by
// a host AI coding agent, once per interception point, as a short-lived
// process reading a JSON intercept payload from stdin and emitting a
// structured decision on stdout/stderr with a well-defined exit code.
package main

import "github.com/atlasgate/gatekeeper/cmd/gatekeeper/cmd"

func main() {
	cmd.Execute()
}
