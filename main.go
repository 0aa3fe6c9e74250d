package main

import "github.com/Layr-Labs/offering-ledger/cmd"

func main() {
	cmd.Execute()
}
