package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/credeval/internal/api"
	"github.com/dmitrijs2005/credeval/internal/client/client"
	"github.com/dmitrijs2005/credeval/internal/server/auth"
	"github.com/gabriel-vasile/mimetype"
)

func (a *App) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// positional parses fs over args, allowing flags after the positional
// arguments, and requires exactly n of them.
func positional(fs *flag.FlagSet, args []string, n int) ([]string, error) {
	var pos []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUsage, err)
		}
		args = fs.Args()
		if len(args) == 0 {
			break
		}
		pos = append(pos, args[0])
		args = args[1:]
	}
	if len(pos) != n {
		return nil, fmt.Errorf("%w: expected %d argument(s), got %d", ErrUsage, n, len(pos))
	}
	return pos, nil
}

type docList []api.Document

func (d *docList) String() string { return fmt.Sprint(len(*d)) }

// Set parses path[,mimetype[,kind]]. Local files are stat'ed and sniffed
// when no mimetype is given.
func (d *docList) Set(v string) error {
	parts := strings.Split(v, ",")
	doc := api.Document{Path: parts[0], Filename: filepath.Base(parts[0]), OriginalName: filepath.Base(parts[0])}
	if len(parts) > 1 {
		doc.Mimetype = parts[1]
	}
	if len(parts) > 2 {
		doc.Type = parts[2]
	}

	if !strings.HasPrefix(doc.Path, "s3://") {
		fi, err := os.Stat(doc.Path)
		if err != nil {
			return err
		}
		doc.Size = fi.Size()
		if doc.Mimetype == "" {
			mt, err := mimetype.DetectFile(doc.Path)
			if err != nil {
				return err
			}
			doc.Mimetype = mt.String()
		}
	}
	if doc.Mimetype == "" {
		doc.Mimetype = mime.TypeByExtension(filepath.Ext(doc.Path))
	}
	if mt, _, err := mime.ParseMediaType(doc.Mimetype); err == nil {
		doc.Mimetype = mt
	}

	*d = append(*d, doc)
	return nil
}

func (a *App) submit(ctx context.Context, c client.Client, args []string) error {
	var req api.SubmitRequest
	var docs docList
	var notes string

	fs := a.flagSet("submit")
	fs.StringVar(&req.StudentID, "student", "", "student id")
	fs.StringVar(&req.CountryCode, "country", "", "country code")
	fs.StringVar(&req.EvaluationType, "type", "course-by-course", "evaluation type")
	fs.StringVar(&req.Institution, "institution", "", "institution")
	fs.StringVar(&req.Program, "program", "", "program")
	fs.StringVar(&notes, "notes", "", "notes")
	fs.Var(&docs, "doc", "document path[,mimetype[,kind]]")
	if _, err := positional(fs, args, 0); err != nil {
		return err
	}
	if req.CountryCode == "" {
		return fmt.Errorf("%w: -country is required", ErrUsage)
	}
	if notes != "" {
		req.Notes = &notes
	}
	req.Documents = docs

	resp, err := c.Submit(ctx, &req)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "evaluation %s %s\n", bold(resp.EvaluationID), statusText(resp.Revision.Status))
	for _, d := range resp.Documents {
		fmt.Fprintf(a.out, "  document %s %s (%s)\n", d.ID, d.Filename, d.Mimetype)
	}
	return nil
}

func (a *App) transition(ctx context.Context, c client.Client, args []string) error {
	var note string
	fs := a.flagSet("transition")
	fs.StringVar(&note, "note", "", "reviewer note")
	pos, err := positional(fs, args, 2)
	if err != nil {
		return err
	}

	var notePtr *string
	if note != "" {
		notePtr = &note
	}
	rev, err := c.Transition(ctx, pos[0], pos[1], notePtr)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s -> %s (seq %d)\n", rev.EvaluationID, statusText(rev.Status), rev.Seq)
	return nil
}

func (a *App) assign(ctx context.Context, c client.Client, args []string) error {
	pos, err := positional(a.flagSet("assign"), args, 2)
	if err != nil {
		return err
	}
	as, err := c.Assign(ctx, pos[0], pos[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s assigned to %s\n", as.EvaluationID, bold(as.AssignedTo))
	return nil
}

func (a *App) history(ctx context.Context, c client.Client, args []string) error {
	pos, err := positional(a.flagSet("history"), args, 1)
	if err != nil {
		return err
	}
	h, err := c.History(ctx, pos[0])
	if err != nil {
		return err
	}
	printHistory(a.out, h)
	return nil
}

func (a *App) timeline(ctx context.Context, c client.Client, args []string) error {
	pos, err := positional(a.flagSet("timeline"), args, 1)
	if err != nil {
		return err
	}
	events, err := c.Timeline(ctx, pos[0])
	if err != nil {
		return err
	}
	printTimeline(a.out, events)
	return nil
}

func (a *App) ingest(ctx context.Context, c client.Client, args []string) error {
	var async bool
	fs := a.flagSet("ingest")
	fs.BoolVar(&async, "async", false, "queue instead of waiting")
	pos, err := positional(fs, args, 1)
	if err != nil {
		return err
	}

	resp, err := c.Ingest(ctx, pos[0], async)
	if err != nil {
		return err
	}
	if resp.Queued {
		fmt.Fprintf(a.out, "%s queued\n", resp.DocumentID)
		return nil
	}
	d := resp.Document
	if d == nil {
		return errors.New("server returned no document")
	}
	fmt.Fprintf(a.out, "%s ingested: %d pages, checksum %s\n", d.ID, d.PageCount, d.Checksum)
	return nil
}

func (a *App) rules(ctx context.Context, c client.Client, args []string) error {
	pos, err := positional(a.flagSet("rules"), args, 1)
	if err != nil {
		return err
	}
	r, err := c.Rules(ctx, pos[0])
	if err != nil {
		return err
	}
	printRules(a.out, r)
	return nil
}

func (a *App) invalidate(ctx context.Context, c client.Client, args []string) error {
	pos, err := positional(a.flagSet("invalidate"), args, 1)
	if err != nil {
		return err
	}
	if err := c.InvalidateRules(ctx, pos[0]); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "rule cache for %s invalidated\n", pos[0])
	return nil
}

// token signs a development token with the configured secret.
func (a *App) token(args []string) error {
	var actor, role string
	var ttl time.Duration
	fs := a.flagSet("token")
	fs.StringVar(&actor, "actor", "", "actor name")
	fs.StringVar(&role, "role", string(auth.RoleStudent), "role")
	fs.DurationVar(&ttl, "ttl", time.Hour, "validity")
	if _, err := positional(fs, args, 0); err != nil {
		return err
	}
	if actor == "" {
		return fmt.Errorf("%w: -actor is required", ErrUsage)
	}
	if a.config.SecretKey == "" {
		return errors.New("CREDEVAL_SECRET_KEY is not set")
	}

	tok, err := auth.GenerateToken(actor, auth.Role(role), []byte(a.config.SecretKey), ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, tok)
	return nil
}
