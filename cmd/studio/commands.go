package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ManuelReschke/BookForge/app/models"
	"github.com/ManuelReschke/BookForge/internal/pkg/apiclient"
	"github.com/ManuelReschke/BookForge/internal/pkg/checkout"
	"github.com/ManuelReschke/BookForge/internal/pkg/embed"
	"github.com/ManuelReschke/BookForge/internal/pkg/env"
	"github.com/ManuelReschke/BookForge/internal/pkg/export"
	"github.com/ManuelReschke/BookForge/internal/pkg/studio"
)

type studioCLI struct {
	api *apiclient.Client
	in  *prompter
	out io.Writer
}

func (s *studioCLI) balance(ctx context.Context) error {
	balance, err := s.api.GetBalance(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%d credits\n", balance)
	return nil
}

func (s *studioCLI) transactions(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("transactions", flag.ExitOnError)
	limit := fs.Int("limit", 20, "number of transactions")
	_ = fs.Parse(args)

	txs, err := s.api.Transactions(ctx, *limit)
	if err != nil {
		return err
	}
	for _, tx := range txs {
		fmt.Fprintf(s.out, "%s  %+5d  %-20s %s\n", tx.CreatedAt.Format(time.DateTime), tx.Amount, tx.TransactionType, tx.Description)
	}
	return nil
}

// write drives a book from idea to export with the chapter cooldown.
func (s *studioCLI) write(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("write", flag.ExitOnError)
	idea := fs.String("idea", "", "what the book is about")
	title := fs.String("title", "", "book title")
	language := fs.String("language", "English", "book language")
	bookType := fs.String("type", "", "book type, e.g. novel")
	style := fs.String("style", "", "writing style")
	chapters := fs.Int("chapters", 5, "number of chapters")
	author := fs.String("author", "", "author shown in exports")
	format := fs.String("format", "", "server export format (pdf, doc, html, markdown); empty writes markdown locally")
	outFile := fs.String("out", "book.md", "local markdown file")
	_ = fs.Parse(args)

	project := studio.NewProject(s.api)
	if err := project.SetSettings(studio.Settings{
		Idea:         *idea,
		Title:        *title,
		Language:     *language,
		BookType:     *bookType,
		WritingStyle: *style,
		Chapters:     *chapters,
	}); err != nil {
		return err
	}

	fmt.Fprintf(s.out, "Generating %d outlines for %d credits...\n", *chapters, project.Cost())
	if err := project.GenerateOutlines(ctx); err != nil {
		return err
	}
	if w := project.Warning(); w != "" {
		fmt.Fprintln(s.out, "Warning:", w)
	}
	for _, ch := range project.Outlines() {
		fmt.Fprintf(s.out, "%d. %s\n   %s\n", ch.Number, ch.Title, ch.Outline)
	}
	if answer := s.in.Ask("Start writing? [Y/n] "); strings.EqualFold(answer, "n") {
		return nil
	}

	if err := project.StartWriting(); err != nil {
		return err
	}
	for _, ch := range project.Chapters() {
		if err := waitCooldown(ctx, project.Cooldown()); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Writing chapter %d: %s\n", ch.Number, ch.Title)
		if _, err := project.WriteChapter(ctx, ch.ID); err != nil {
			return err
		}
	}
	if err := project.FinishBook(); err != nil {
		return err
	}

	book := project.Book(*author)
	if *format == "" {
		if err := os.WriteFile(*outFile, []byte(export.Markdown(book)), 0644); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Saved %s\n", *outFile)
		return nil
	}
	return s.requestExport(ctx, apiclient.ExportRequest{Format: *format, Book: &book})
}

func waitCooldown(ctx context.Context, c *studio.Cooldown) error {
	for !c.Ready() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return nil
}

func (s *studioCLI) requestExport(ctx context.Context, req apiclient.ExportRequest) error {
	record, err := s.api.CreateExport(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Export %s queued\n", record.ID)
	for record.Status == models.ExportStatusQueued || record.Status == models.ExportStatusRunning {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
		if record, err = s.api.GetExport(ctx, record.ID); err != nil {
			return err
		}
	}
	if record.Status == models.ExportStatusFailed {
		return fmt.Errorf("export failed: %s", record.Error)
	}
	fmt.Fprintf(s.out, "Export ready: %s\n", record.URL)
	return nil
}

func (s *studioCLI) buy(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("buy", flag.ExitOnError)
	packageID := fs.String("package", "", "package id (starter, writer, author)")
	currency := fs.String("currency", "USD", "USD or INR")
	userID := fs.String("user", env.GetEnv("BOOKFORGE_USER_ID", ""), "your user id, used for the order receipt")
	_ = fs.Parse(args)

	if *packageID == "" {
		packages, err := s.api.ListPackages(ctx)
		if err != nil {
			return err
		}
		for _, p := range packages {
			fmt.Fprintf(s.out, "%-8s %4d credits  USD %s  INR %s\n", p.ID, p.Credits, p.Price.USD.StringFixed(2), p.Price.INR.StringFixed(0))
		}
		return nil
	}

	flow := checkout.NewFlow(s.api, *userID, env.GetEnv("SUPPORT_EMAIL", ""))
	out, err := flow.Purchase(ctx, *packageID, *currency, terminalCheckout{p: s.in})
	if err != nil {
		return err
	}

	switch out.Status {
	case checkout.StatusCancelled:
		fmt.Fprintln(s.out, "Checkout cancelled, nothing was charged.")
	case checkout.StatusCredited:
		fmt.Fprintf(s.out, "Added %d credits, new balance %d\n", out.Result.CreditsAdded, out.Result.NewBalance)
	case checkout.StatusManualReview:
		fmt.Fprintf(s.out, "We could not verify your payment after %d attempts. Please send these details to support:\n\n%s\n", out.Attempts, out.Manual.CopyText())
		if out.Manual.SupportEmail != "" {
			fmt.Fprintln(s.out, out.Manual.MailtoURL())
		}
		if strings.EqualFold(s.in.Ask("Send them to support now? [y/N] "), "y") {
			email := s.in.Ask("Your email: ")
			message := s.in.Ask("Message: ")
			if err := flow.ContactSupport(ctx, out.Manual, email, message); err != nil {
				return err
			}
			fmt.Fprintln(s.out, "Support request sent.")
		}
	}
	return nil
}

// director runs an interactive director mode session. Every message costs
// credits on the server.
func (s *studioCLI) director(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("director", flag.ExitOnError)
	title := fs.String("title", "", "book title")
	idea := fs.String("idea", "", "what the book is about")
	language := fs.String("language", "English", "book language")
	format := fs.String("format", "pdf", "export format when done")
	_ = fs.Parse(args)

	project, err := s.api.CreateDirectorProject(ctx, *title, *idea, *language)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Project %s created. Describe the next chapter, \"revise chapter N ...\" to rewrite one, \"done\" to export.\n", project.ID)

	for {
		msg := s.in.Ask("> ")
		if msg == "" {
			continue
		}
		if msg == "done" || msg == "exit" {
			break
		}
		updated, err := s.api.SendDirectorMessage(ctx, project.ID, msg)
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) && apiErr.Code == "insufficient_credits" {
			fmt.Fprintln(s.out, "Not enough credits. Run \"studio buy\" to top up.")
			continue
		}
		if err != nil {
			return err
		}
		project = updated
		if n := len(project.Chapters); n > 0 {
			ch := project.Chapters[n-1]
			fmt.Fprintf(s.out, "Chapter %d: %s (%d chapters so far)\n", ch.Number, ch.Title, n)
		}
	}

	if len(project.Chapters) == 0 {
		return nil
	}
	return s.requestExport(ctx, apiclient.ExportRequest{Format: *format, ProjectID: project.ID})
}

func (s *studioCLI) exportStatus(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	id := fs.String("id", "", "export id")
	_ = fs.Parse(args)

	record, err := s.api.GetExport(ctx, *id)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s  %s  %s  %s\n", record.ID, record.Format, record.Status, record.URL)
	return nil
}

func (s *studioCLI) embed(args []string) error {
	if len(args) == 0 {
		return errors.New("url missing")
	}
	u, err := embed.ToEmbedURL(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, u)
	return nil
}
