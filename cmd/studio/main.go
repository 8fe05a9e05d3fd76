package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/ManuelReschke/BookForge/internal/pkg/apiclient"
	"github.com/ManuelReschke/BookForge/internal/pkg/env"
)

func main() {
	env.SetupEnvFile()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := apiclient.NewFromEnv().WithUserID(env.GetEnv("BOOKFORGE_USER_ID", ""))
	cli := &studioCLI{api: client, in: newPrompter(os.Stdin, os.Stdout), out: os.Stdout}

	var err error
	args := os.Args[2:]
	switch os.Args[1] {
	case "balance":
		err = cli.balance(ctx)
	case "transactions":
		err = cli.transactions(ctx, args)
	case "write":
		err = cli.write(ctx, args)
	case "buy":
		err = cli.buy(ctx, args)
	case "director":
		err = cli.director(ctx, args)
	case "export":
		err = cli.exportStatus(ctx, args)
	case "embed":
		err = cli.embed(args)
	default:
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}

func printUsage() {
	fmt.Println("Usage: studio [command] [flags]")
	fmt.Println("Commands:")
	fmt.Println("  balance                 - show your credit balance")
	fmt.Println("  transactions [-limit N] - list recent credit transactions")
	fmt.Println("  write -idea TEXT        - plan, write and export a book")
	fmt.Println("  buy -package ID         - buy a credit package")
	fmt.Println("  director -title T -idea I - write a book chapter by chapter in director mode")
	fmt.Println("  export -id ID           - show the state of an export")
	fmt.Println("  embed URL               - convert a share link into an embed URL")
	fmt.Println("Environment: BOOKFORGE_API_URL, BOOKFORGE_TOKEN, BOOKFORGE_USER_ID")
}
