package main

import (
	"xscrape-backend/cmd/xscrape/cmd"
)

func main() {
	cmd.Execute()
}
