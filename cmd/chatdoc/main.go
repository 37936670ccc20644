package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/baalimago/go_away_boilerplate/pkg/ancli"
	"github.com/baalimago/go_away_boilerplate/pkg/misc"
	"github.com/baalimago/go_away_boilerplate/pkg/shutdown"
	"github.com/youruser/chatdoc/internal/conf"
	"github.com/youruser/chatdoc/internal/images"
	"github.com/youruser/chatdoc/internal/notebook"
	"github.com/youruser/chatdoc/internal/turns"
	"github.com/youruser/chatdoc/internal/vendors"
)

const usage = `chatdoc - chat with language models inside markdown documents

Prerequisites:
  - Set the OPENAI_API_KEY environment variable to your OpenAI API key
  - Set the ANTHROPIC_API_KEY environment variable to your Anthropic API key
  - Set the GEMINI_API_KEY environment variable to your Gemini API key
  - Set the AZURE_OPENAI_API_KEY environment variable to your Azure OpenAI API key
  - (Optional) Run ollama locally for the default local provider

Usage: chatdoc <command>

Commands:
  h|help                 Display this help message
  s|send <document>      Send the document's conversation and stream the reply into it.
                         Press ctrl+c to stop the stream, partial text already written is kept.
  n|new [dir]            Create a new chat document in dir (default '.')
  m|models               List the models of every configured provider
  f|fmt <document>       Normalize the blank lines around every turn body

Examples:
  - chatdoc new ~/notes
  - chatdoc send "~/notes/Chat - 2024-01-01.md"
  - chatdoc models
`

func main() {
	ancli.SetupSlog()
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	cfg, err := conf.Load()
	if err != nil {
		ancli.Errf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() { shutdown.Monitor(cancel) }()

	cmd := os.Args[1]
	switch cmd {
	case "h", "help":
		fmt.Print(usage)
	case "s", "send":
		err = send(ctx, cfg, os.Args[2:])
	case "n", "new":
		err = newDoc(os.Args[2:])
	case "m", "models":
		err = listModels(ctx, cfg)
	case "f", "fmt":
		err = fmtDoc(os.Args[2:])
	default:
		fmt.Print(usage)
		ancli.Errf("unknown command: '%v'\n", cmd)
		os.Exit(1)
	}
	cancel()
	if err != nil {
		ancli.PrintErr(fmt.Sprintf("failed to run: %v\n", err))
		os.Exit(1)
	}
	if misc.Truthy(os.Getenv("DEBUG")) {
		ancli.PrintOK("all done\n")
	}
}

func send(ctx context.Context, cfg conf.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("send requires a document path")
	}
	doc := &notebook.FileDocument{Path: args[0]}
	extractor := &images.Extractor{
		Resolver: images.DirResolver{Root: filepath.Dir(args[0])},
	}
	n := notebook.New(cfg, extractor.Extract)
	n.Debug = misc.Truthy(os.Getenv("DEBUG"))
	n.OnFragment = func(fragment string) { fmt.Print(fragment) }
	err := n.Submit(ctx, doc)
	fmt.Println()
	return err
}

func newDoc(args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	doc, err := notebook.NewDocument(dir)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	ancli.Okf("created '%v'\n", doc.Path)
	return nil
}

func listModels(ctx context.Context, cfg conf.Config) error {
	for _, modelID := range vendors.ListVisible(ctx, cfg) {
		fmt.Println(modelID)
	}
	return nil
}

func fmtDoc(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("fmt requires a document path")
	}
	doc := &notebook.FileDocument{Path: args[0]}
	content, err := doc.Read()
	if err != nil {
		return err
	}
	trimmed := turns.TrimAllBodies(content)
	if trimmed == content {
		return nil
	}
	if err := os.WriteFile(doc.Path, []byte(trimmed), 0o644); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	ancli.Okf("formatted '%v'\n", strings.TrimSuffix(filepath.Base(doc.Path), ".md"))
	return nil
}
