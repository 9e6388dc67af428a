package main

import "github.com/yapay-ai/llm-cost-advisor/internal/cli"

func main() {
	cli.Execute()
}
