package main

import "github.com/thirdweb-dev/eth-ingest/cmd"

func main() {
	cmd.Execute()
}
